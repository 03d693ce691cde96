package peadb

// Exact wire error strings. Clients branch on the space-terminated code
// prefix and some match the full text, so these never change shape.
const (
	errWrongType    = "WRONGTYPE Operation against a key holding the wrong kind of value"
	errNotInt       = "ERR value is not an integer or out of range"
	errNotFloat     = "ERR value is not a valid float"
	errSyntax       = "ERR syntax error"
	errOOM          = "OOM command not allowed when used memory > 'maxmemory'."
	errBusyScript   = "BUSY Redis is busy running a script. You can only call SCRIPT KILL or SHUTDOWN NOSAVE."
	errNoScript     = "NOSCRIPT No matching script. Please use EVAL."
	errNotBusy      = "NOTBUSY No scripts in execution right now."
	errNoReplicas   = "NOREPLICAS Not enough good replicas to write."
	errReadonly     = "READONLY You can't write against a read only replica."
	errMasterDown   = "MASTERDOWN Link with MASTER is down and replica-serve-stale-data is set to 'no'."
	errExecAbort    = "EXECABORT Transaction discarded because of previous errors."
	errBusyKey      = "BUSYKEY Target key name already exists."
	errNoProto      = "NOPROTO unsupported protocol version"
	errNoAuth       = "NOAUTH Authentication required."
	errNoSuchKey    = "ERR no such key"
	errIndexRange   = "ERR index out of range"
	errDBIndex      = "ERR DB index is out of range"
	errNestedMulti  = "ERR MULTI calls can not be nested"
	errExecNoMulti  = "ERR EXEC without MULTI"
	errDiscNoMulti  = "ERR DISCARD without MULTI"
	errWatchInMulti = "ERR WATCH inside MULTI is not allowed"
	errScriptRO     = "ERR Write commands are not allowed from read-only scripts"
	errNoScriptVM   = "ERR Lua scripting is not available in this build"
	errNoScriptCmd  = "ERR This Redis command, is not allowed from script"
	errAuthNoPass   = "ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?"
	errBadPass      = "WRONGPASS invalid username-password pair or user is disabled."
)

func errWrongArgs(cmd string) string {
	return "ERR wrong number of arguments for '" + cmd + "' command"
}

func errInvalidExpire(cmd string) string {
	return "ERR invalid expire time in '" + cmd + "' command"
}

func errUnknownSub(sub, cmd string) string {
	return "ERR Unknown " + cmd + " subcommand or wrong number of arguments for '" + sub + "'"
}
