package script

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// LogModule exposes log.info, log.error and log.debug to scripts.
type LogModule struct {
	logger *slog.Logger
}

func NewLogModule(logger *slog.Logger) *LogModule {
	return &LogModule{logger: logger}
}

func (l *LogModule) Name() string {
	return "log"
}

func (l *LogModule) Register(L *lua.LState) error {
	logTable := L.NewTable()

	L.SetField(logTable, "info", L.NewFunction(l.logFunc(slog.LevelInfo)))
	L.SetField(logTable, "error", L.NewFunction(l.logFunc(slog.LevelError)))
	L.SetField(logTable, "debug", L.NewFunction(l.logFunc(slog.LevelDebug)))

	L.SetGlobal("log", logTable)
	return nil
}

func (l *LogModule) logFunc(level slog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		message := L.CheckString(1)
		if l.logger != nil {
			l.logger.Log(context.Background(), level, message, "source", "filter_script")
		}
		return 0
	}
}
