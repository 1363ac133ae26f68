// Package comments keeps the append-only audit trail attached to a monthly
// declaration. Entries are never edited or deleted.
package comments

import "time"

// Comment is one entry in a declaration's comment log. AuthorRole records
// in what capacity the author acted (employee / supervisor / payroll / admin).
type Comment struct {
	ID            int64     `json:"id"`
	DeclarationID int64     `json:"declaration_id"`
	AuthorID      int64     `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	AuthorRole    string    `json:"author_role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
