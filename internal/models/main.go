// Package models defines the core data structures for accounts, boards,
// columns and items.
package models

// Account is a registered user. The ID is a UUID string and is the value
// carried by the session cookie.
type Account struct {
	// ID is the unique identifier for the account.
	ID string `json:"id"`
	// Email is the unique login address of the account.
	Email string `json:"email"`
}

// Credential holds the salted password hash of exactly one Account.
type Credential struct {
	// AccountID links the credential to its owner.
	AccountID string `json:"-"`
	// Hash is the hex-encoded PBKDF2 derived key.
	Hash string `json:"-"`
	// Salt is the hex-encoded random salt used to derive Hash.
	Salt string `json:"-"`
}

// Board is a named, colored kanban board owned by a single account.
type Board struct {
	// ID is the unique identifier for the board.
	ID int64 `json:"id"`
	// Name is the display name of the board.
	Name string `json:"name"`
	// Color is a CSS color used when rendering the board.
	Color string `json:"color"`
	// AccountID is the owner of the board. It never changes.
	AccountID string `json:"accountId"`
	// Columns are ordered by Order ascending, ties broken by ID. A board
	// read with its contents always carries a non-nil slice.
	Columns []Column `json:"columns"`
}

// Column is an ordered lane inside a Board.
type Column struct {
	// ID is the unique identifier for the column.
	ID int64 `json:"id"`
	// BoardID is the parent board.
	BoardID int64 `json:"boardId"`
	// Name may be empty: columns are created without a name.
	Name string `json:"name"`
	// Order is the rank among sibling columns, assigned at creation.
	Order int64 `json:"order"`
	// Items are ordered by Order ascending, ties broken by ID.
	Items []Item `json:"items"`
}

// Item is a card inside a Column.
type Item struct {
	// ID is the unique identifier for the item.
	ID int64 `json:"id"`
	// ColumnID is the parent column.
	ColumnID int64 `json:"columnId"`
	// Title is the headline of the card.
	Title string `json:"title"`
	// Content is optional free text, nil when never set.
	Content *string `json:"content"`
	// Order is the rank among sibling items, assigned at creation.
	Order int64 `json:"order"`
}
