package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRunState   = "run_state"
	KeyTarget     = "target"
	KeyFile       = "file"
	KeyInclude    = "include"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyLines      = "lines"
	KeyDurationMS = "duration_ms"
	KeySchedule   = "schedule_name"
	KeyScheduleID = "schedule_id"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func RunState(s string) slog.Attr      { return slog.String(KeyRunState, s) }
func Target(name string) slog.Attr     { return slog.String(KeyTarget, name) }
func File(path string) slog.Attr       { return slog.String(KeyFile, path) }
func Include(path string) slog.Attr    { return slog.String(KeyInclude, path) }
func Command(cmd string) slog.Attr     { return slog.String(KeyCommand, cmd) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func Lines(n int) slog.Attr            { return slog.Int(KeyLines, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func ScheduleName(n string) slog.Attr  { return slog.String(KeySchedule, n) }
func ScheduleID(id string) slog.Attr   { return slog.String(KeyScheduleID, id) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
