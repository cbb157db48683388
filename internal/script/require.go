package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// setupRequire replaces the global require so that modules outside
// package.preload resolve only to .lua files under dir.
func setupRequire(L *lua.LState, dir string) {
	originalRequire := L.GetGlobal("require")

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		module := L.CheckString(1)

		preload := L.GetField(L.GetGlobal("package"), "preload")
		if tbl, ok := preload.(*lua.LTable); ok && L.GetField(tbl, module) != lua.LNil {
			if fn, ok := originalRequire.(*lua.LFunction); ok {
				L.Push(fn)
				L.Push(lua.LString(module))
				L.Call(1, 1)
				return 1
			}
		}

		content, err := readModule(dir, module)
		if err != nil {
			L.RaiseError("failed to require module %s: %s", module, err.Error())
			return 0
		}

		fn, err := L.LoadString(content)
		if err != nil {
			L.RaiseError("failed to load module %s: %s", module, err.Error())
			return 0
		}

		L.Push(fn)
		L.Call(0, 1)
		return 1
	}))
}

func readModule(dir, module string) (string, error) {
	name := strings.ReplaceAll(module, ".", string(filepath.Separator)) + ".lua"
	path := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("module path escapes %s", dir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
