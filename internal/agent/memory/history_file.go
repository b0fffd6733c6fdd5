package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// HistoryDump — формат файла локальной истории:
//
//	{ "entries": [ ... ] }
type HistoryDump struct {
	Entries []Entry `json:"entries"`
}

// SaveToFile сохраняет историю в path (каталог 0700, файл 0600).
func SaveToFile(path string, h *History) error {
	out := HistoryDump{Entries: h.List()}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// LoadFromFile заменяет содержимое h данными из файла.
// Отсутствие файла — не ошибка (первый запуск).
func LoadFromFile(path string, h *History) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var dump HistoryDump
	if err := json.Unmarshal(b, &dump); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = dump.Entries
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
	return nil
}
