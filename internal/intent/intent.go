// Package intent turns a form-encoded mutation request into a typed intent
// and applies it to a board.
//
// Each request names exactly one intent. Parsing validates the fields the
// intent needs, so dispatch never sees a half-filled request.
package intent

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/trellix/internal/models"
)

// Intent names understood on the board scope.
const (
	NameNewColumn    = "newColumn"
	NameUpdateColumn = "updateColumn"
	NameCreateItem   = "createItem"
	NameCreateBoard  = "createBoard"
)

// Intent is one parsed mutation request.
type Intent interface {
	// Kind returns the intent name as submitted.
	Kind() string
	isIntent()
}

// NewColumn appends an empty column to a board.
type NewColumn struct {
	BoardID int64
}

// UpdateColumn renames a column.
type UpdateColumn struct {
	BoardID  int64
	ColumnID int64
	Name     string
}

// CreateItem appends a card to a column.
type CreateItem struct {
	BoardID  int64
	ColumnID int64
	Title    string
}

// CreateBoard creates a board for the requesting account.
type CreateBoard struct {
	Name  string
	Color string
}

// Unknown is an intent name no handler exists for.
type Unknown struct {
	Name string
}

func (NewColumn) Kind() string    { return NameNewColumn }
func (UpdateColumn) Kind() string { return NameUpdateColumn }
func (CreateItem) Kind() string   { return NameCreateItem }
func (CreateBoard) Kind() string  { return NameCreateBoard }
func (u Unknown) Kind() string    { return u.Name }

func (NewColumn) isIntent()    {}
func (UpdateColumn) isIntent() {}
func (CreateItem) isIntent()   {}
func (CreateBoard) isIntent()  {}
func (Unknown) isIntent()      {}

// ParseBoard reads the intent submitted against boardID.
func ParseBoard(form url.Values, boardID int64) (Intent, error) {
	name := form.Get("intent")
	if name == "" {
		return nil, models.NewValidationError("intent", "Missing intent")
	}

	switch name {
	case NameNewColumn:
		return NewColumn{BoardID: boardID}, nil

	case NameUpdateColumn:
		columnName := form.Get("name")
		columnID, ok := parseID(form.Get("columnId"))
		if columnName == "" || !ok {
			return nil, models.NewValidationError("name", "Missing name or columnId")
		}
		return UpdateColumn{BoardID: boardID, ColumnID: columnID, Name: columnName}, nil

	case NameCreateItem:
		title := form.Get("title")
		columnID, ok := parseID(form.Get("columnId"))
		if title == "" || !ok {
			return nil, models.NewValidationError("title", "Missing title or columnId")
		}
		return CreateItem{BoardID: boardID, ColumnID: columnID, Title: title}, nil
	}

	return Unknown{Name: name}, nil
}

// ParseHome reads the board creation form of the home scope. It carries no
// intent field.
func ParseHome(form url.Values) (Intent, error) {
	name := form.Get("name")
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "Board name is required")
	}
	return CreateBoard{Name: name, Color: form.Get("color")}, nil
}

// parseID accepts positive decimal ids only.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
