package resp

import (
	"testing"

	"github.com/rsms/go-testutil"
)

func TestDecodeRequestMultibulk(t *testing.T) {
	assert := testutil.NewAssert(t)

	args, n, err := DecodeRequest([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	assert.Ok("no error", err == nil)
	assert.Eq("consumed", n, 27)
	assert.Eq("argc", len(args), 3)
	assert.Eq("arg0", string(args[0]), "SET")
	assert.Eq("arg2", string(args[2]), "v")

	// empty and nil arrays are consumed but dispatch to nothing
	args, n, err = DecodeRequest([]byte("*0\r\n"))
	assert.Ok("no error", err == nil)
	assert.Eq("consumed", n, 4)
	assert.Eq("argc", len(args), 0)
}

func TestDecodeRequestIncomplete(t *testing.T) {
	assert := testutil.NewAssert(t)

	for _, buf := range []string{
		"",
		"*2\r\n$3\r\nGET\r\n",
		"*2\r\n$3\r\nGET\r\n$5\r\nab",
		"*2",
	} {
		_, n, err := DecodeRequest([]byte(buf))
		assert.Eq("incomplete err "+buf, err, ErrIncomplete)
		assert.Eq("untouched "+buf, n, 0)
	}
}

func TestDecodeRequestProtocolError(t *testing.T) {
	assert := testutil.NewAssert(t)

	_, n, err := DecodeRequest([]byte("*abc\r\n"))
	pe, ok := err.(*ProtocolError)
	assert.Ok("protocol error", ok)
	assert.Eq("message", pe.Msg, "ERR Protocol error: invalid multibulk length")
	assert.Ok("advances", n > 0)

	_, _, err = DecodeRequest([]byte("*1\r\n:5\r\n"))
	pe, ok = err.(*ProtocolError)
	assert.Ok("protocol error", ok)
	assert.Eq("message", pe.Msg, "ERR Protocol error: expected '$', got ':'")

	_, _, err = DecodeRequest([]byte("*1\r\n$-2\r\n\r\n"))
	_, ok = err.(*ProtocolError)
	assert.Ok("bad bulk length", ok)
}

func TestDecodeRequestInline(t *testing.T) {
	assert := testutil.NewAssert(t)

	args, n, err := DecodeRequest([]byte("PING\r\n"))
	assert.Ok("no error", err == nil)
	assert.Eq("consumed", n, 6)
	assert.Eq("argc", len(args), 1)
	assert.Eq("arg0", string(args[0]), "PING")

	args, _, err = DecodeRequest([]byte("SET \"a b\" 'c d'\r\n"))
	assert.Ok("no error", err == nil)
	assert.Eq("argc", len(args), 3)
	assert.Eq("quoted", string(args[1]), "a b")
	assert.Eq("single-quoted", string(args[2]), "c d")

	_, _, err = DecodeRequest([]byte("SET \"unbalanced\r\n"))
	pe, ok := err.(*ProtocolError)
	assert.Ok("unbalanced quotes", ok)
	assert.Eq("message", pe.Msg, "ERR Protocol error: unbalanced quotes in request")

	// bare LF works too (redis-cli manual use)
	args, _, err = DecodeRequest([]byte("ECHO hi\n"))
	assert.Ok("no error", err == nil)
	assert.Eq("argc", len(args), 2)
}

func TestDecodeRequestPipelined(t *testing.T) {
	assert := testutil.NewAssert(t)

	buf := []byte("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\nPING\r\n")
	var count int
	for len(buf) > 0 {
		args, n, err := DecodeRequest(buf)
		assert.Ok("no error", err == nil)
		assert.Eq("cmd", string(args[0]), "PING")
		buf = buf[n:]
		count++
	}
	assert.Eq("three requests", count, 3)
}

func TestReplyWriterRESP2(t *testing.T) {
	assert := testutil.NewAssert(t)
	w := NewReplyWriter(false)

	w.SimpleString("OK")
	assert.Eq("simple", string(w.Take()), "+OK\r\n")
	w.Int(-12)
	assert.Eq("int", string(w.Take()), ":-12\r\n")
	w.Bulk([]byte("hi"))
	assert.Eq("bulk", string(w.Take()), "$2\r\nhi\r\n")
	w.Null()
	assert.Eq("null bulk", string(w.Take()), "$-1\r\n")
	w.NullArray()
	assert.Eq("null array", string(w.Take()), "*-1\r\n")
	w.MapHeader(1)
	assert.Eq("map as flat array", string(w.Take()), "*2\r\n")
	w.Bool(true)
	assert.Eq("bool as int", string(w.Take()), ":1\r\n")
	w.Double(1.5)
	assert.Eq("double as bulk", string(w.Take()), "$3\r\n1.5\r\n")
	w.Error("ERR boom")
	assert.Eq("error", string(w.Take()), "-ERR boom\r\n")
}

func TestReplyWriterRESP3(t *testing.T) {
	assert := testutil.NewAssert(t)
	w := NewReplyWriter(true)

	w.Null()
	assert.Eq("null", string(w.Take()), "_\r\n")
	w.MapHeader(1)
	assert.Eq("map", string(w.Take()), "%1\r\n")
	w.SetHeader(2)
	assert.Eq("set", string(w.Take()), "~2\r\n")
	w.Bool(false)
	assert.Eq("bool", string(w.Take()), "#f\r\n")
	w.Double(1.5)
	assert.Eq("double", string(w.Take()), ",1.5\r\n")
	w.BigNumber("123")
	assert.Eq("bignum", string(w.Take()), "(123\r\n")
	w.Verbatim("txt", "hi")
	assert.Eq("verbatim", string(w.Take()), "=6\r\ntxt:hi\r\n")
	w.PushHeader(1)
	assert.Eq("push", string(w.Take()), ">1\r\n")
}

func TestParseIntStrict(t *testing.T) {
	assert := testutil.NewAssert(t)

	v, ok := ParseInt([]byte("123"))
	assert.Ok("ok", ok)
	assert.Eq("value", v, int64(123))

	v, ok = ParseInt([]byte("-9223372036854775808"))
	assert.Ok("min int64", ok)
	assert.Eq("value", v, int64(-9223372036854775808))

	for _, bad := range []string{"", "+1", "010", "1a", "9223372036854775808", "--1", " 1"} {
		_, ok = ParseInt([]byte(bad))
		assert.Ok("rejects "+bad, !ok)
	}
}

func TestAppendFloat(t *testing.T) {
	assert := testutil.NewAssert(t)

	assert.Eq("integral", string(AppendFloat(nil, 3)), "3")
	assert.Eq("fraction", string(AppendFloat(nil, 3.1)), "3.1")
	assert.Eq("negative", string(AppendFloat(nil, -0.25)), "-0.25")
}

func TestEncodeCommand(t *testing.T) {
	assert := testutil.NewAssert(t)
	assert.Eq("encoding",
		string(EncodeCommandStr("SET", "k", "v")),
		"*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n")
}
