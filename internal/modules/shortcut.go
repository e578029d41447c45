// internal/modules/shortcut.go
package modules

// ShortcutKey 触发主操作的按键
const ShortcutKey = "g"

// KeyEvent 键盘事件
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrlKey"`
	Meta  bool   `json:"metaKey"`
	Shift bool   `json:"shiftKey"`
	Alt   bool   `json:"altKey"`
}

// ShortcutResult 快捷键处理结果
type ShortcutResult struct {
	Handled        bool   `json:"handled"`
	PreventDefault bool   `json:"preventDefault"`
	Error          string `json:"error,omitempty"`
}

// MatchesShortcut Ctrl 或 Meta 加小写 g
func MatchesShortcut(ev KeyEvent) bool {
	return (ev.Ctrl || ev.Meta) && ev.Key == ShortcutKey
}
