// Package lua runs editor plugins written in Lua.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - Go-Lua value conversion
//   - The "ed" module binding a script to an editor
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
// # Module
//
// Open installs the "ed" module into a state. Scripts reach it as the global
// "ed" or through require("ed"):
//
//	mod := lua.Open(editor, state)
//	defer mod.Close()
//
//	err := state.DoString(`
//	    ed.register_command("shout", "high", function(s)
//	        return ed.insert_text(string.upper(s))
//	    end)
//	`)
//
// The module exposes:
//
//	ed.register_command(name, priority, fn)  -- fn(payload) returns handled
//	ed.dispatch(name, payload)               -- returns handled
//	ed.text()                                -- document text content
//	ed.insert_text(s)                        -- dispatches insert-text
//	ed.append_paragraph(s)                   -- returns the new paragraph key
//	ed.selection()                           -- table or nil
//	ed.log(msg)
//
// # Sandbox
//
// Only the base, table, string and math libraries are opened. dofile,
// loadfile, load and loadstring are removed, package.path is cleared, and
// require resolves only the safe built-in modules and "ed".
//
// # Thread Safety
//
// A State belongs to the goroutine driving its editor. Command handlers
// registered from Lua run on whatever goroutine dispatches the command.
package lua
