package types

import "time"

// Sheet представляет запись в таблице sheets
type Sheet struct {
	Name      string    `json:"name" db:"name"`
	Header    string    `json:"header" db:"header"` // JSON-массив заголовков
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SheetRow представляет запись в таблице sheet_rows
type SheetRow struct {
	ID         int64     `json:"id" db:"id"`
	SheetName  string    `json:"sheet_name" db:"sheet_name"`
	Cells      string    `json:"cells" db:"cells"` // JSON-массив ячеек в порядке заголовка
	AppendedAt time.Time `json:"appended_at" db:"appended_at"`
}
