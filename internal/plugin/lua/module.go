package lua

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/inkwell/internal/command"
	"github.com/dshills/inkwell/internal/command/text"
	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// handlerTable is the registry global holding Lua command handlers so they
// stay reachable for the lifetime of the module.
const handlerTable = "_ed_handlers"

// Module binds the "ed" Lua module to an editor.
type Module struct {
	editor *engine.Editor
	state  *State
	bridge *Bridge
	logger *slog.Logger

	handlers *lua.LTable
	off      []func()
}

// Open installs the "ed" module into s, bound to e. The module is
// available both as the global "ed" and through require("ed").
func Open(e *engine.Editor, s *State) *Module {
	m := &Module{
		editor: e,
		state:  s,
		bridge: NewBridge(s.L),
		logger: e.Logger().With(slog.String("component", "lua")),
	}

	L := s.L
	m.handlers = L.NewTable()
	L.SetGlobal(handlerTable, m.handlers)

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"register_command": m.registerCommand,
		"dispatch":         m.dispatch,
		"text":             m.text,
		"insert_text":      m.insertText,
		"append_paragraph": m.appendParagraph,
		"selection":        m.selection,
		"log":              m.log,
	})
	L.PreloadModule(ModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
	L.SetGlobal(ModuleName, mod)
	return m
}

// LoadFile runs the script at path.
func (m *Module) LoadFile(path string) error {
	if err := m.state.DoFile(path); err != nil {
		m.logger.Warn("plugin failed", slog.String("path", path), slog.Any("error", err))
		return err
	}
	m.logger.Info("plugin loaded", slog.String("path", path))
	return nil
}

// Close unregisters every command the scripts registered.
func (m *Module) Close() {
	for _, off := range m.off {
		off()
	}
	m.off = nil
	if !m.state.IsClosed() {
		m.state.SetGlobal(handlerTable, lua.LNil)
	}
}

// register_command(name, [priority,] fn)
// priority is a name such as "high" or a number; it defaults to "normal".
func (m *Module) registerCommand(L *lua.LState) int {
	name := L.CheckString(1)
	priority := command.PriorityNormal
	fnArg := 2
	if L.GetTop() >= 3 {
		fnArg = 3
		switch p := L.Get(2).(type) {
		case lua.LString:
			parsed, ok := command.ParsePriority(string(p))
			if !ok {
				L.ArgError(2, "unknown priority "+string(p))
				return 0
			}
			priority = parsed
		case lua.LNumber:
			priority = command.Priority(int(p))
		default:
			L.ArgError(2, "priority must be a string or number")
			return 0
		}
	}
	fn := L.CheckFunction(fnArg)
	m.handlers.Append(fn)

	off := m.editor.RegisterCommand(name, priority, func(payload any) bool {
		results, err := m.state.Call(fn, m.bridge.ToLuaValue(payload))
		if err != nil {
			m.logger.Warn("plugin command failed",
				slog.String("command", name),
				slog.Any("error", err))
			return false
		}
		return len(results) > 0 && lua.LVAsBool(results[0])
	})
	m.off = append(m.off, off)
	m.logger.Debug("plugin command registered",
		slog.String("command", name),
		slog.String("priority", priority.String()))
	return 0
}

// dispatch(name, payload) -> handled
func (m *Module) dispatch(L *lua.LState) int {
	name := L.CheckString(1)
	payload := m.bridge.ToGoValue(L.Get(2))
	L.Push(lua.LBool(m.editor.Dispatch(name, payload)))
	return 1
}

// text() -> string
func (m *Module) text(L *lua.LState) int {
	L.Push(lua.LString(m.editor.State().TextContent()))
	return 1
}

// insert_text(s) -> handled
func (m *Module) insertText(L *lua.LState) int {
	s := L.CheckString(1)
	L.Push(lua.LBool(m.editor.Dispatch(text.InsertText, s)))
	return 1
}

// append_paragraph(s) -> key
func (m *Module) appendParagraph(L *lua.LState) int {
	s := L.OptString(1, "")
	var key node.Key
	err := m.editor.Update(func(tx *store.Txn) error {
		p, err := tx.CreateElement(text.ParagraphType)
		if err != nil {
			return err
		}
		if s != "" {
			leaf, err := tx.CreateText(s)
			if err != nil {
				return err
			}
			if err := tx.Append(p.Key(), leaf.Key()); err != nil {
				return err
			}
		}
		key = p.Key()
		return tx.Append(node.RootKey, key)
	}, engine.WithTag(engine.TagHistoryPush))
	if err != nil {
		L.RaiseError("append_paragraph: %v", err)
		return 0
	}
	L.Push(lua.LString(key))
	return 1
}

// selection() -> {anchor=point, focus=point, collapsed=bool} or nil
func (m *Module) selection(L *lua.LState) int {
	sel := m.editor.State().Selection()
	if sel == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("anchor", pointTable(L, sel.Anchor))
	t.RawSetString("focus", pointTable(L, sel.Focus))
	t.RawSetString("collapsed", lua.LBool(sel.IsCollapsed()))
	L.Push(t)
	return 1
}

func pointTable(L *lua.LState, p selection.Point) *lua.LTable {
	t := L.CreateTable(0, 3)
	t.RawSetString("key", lua.LString(p.Key))
	t.RawSetString("offset", lua.LNumber(p.Offset))
	t.RawSetString("type", lua.LString(p.Type.String()))
	return t
}

// log(msg)
func (m *Module) log(L *lua.LState) int {
	m.logger.Info(L.CheckString(1))
	return 0
}
