// Package text registers the built-in editing commands on an editor.
//
// Every command is dispatched by name through the editor's command chain at
// command.PriorityEditor, so plugins registered at a higher priority can
// intercept any of them. Payloads:
//
//	insert-text       string to insert at the caret; "\n" starts a new paragraph
//	delete-backward   nil
//	insert-paragraph  nil
//	move-left         nil
//	move-right        nil
//	toggle-format     node.Format, or a format name such as "bold"
//	undo, redo        nil
package text
