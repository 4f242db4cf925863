package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/trellix/internal/db"
	"github.com/atinyakov/trellix/internal/models"
)

// BoardRepository implements board, column and item persistence.
//
// Ranks (sort_order) are assigned here as the current maximum among siblings
// plus one; callers never supply them. Two writers racing on the same parent
// can read the same maximum and store equal ranks. Reads order by rank and
// then by id, so the rendered order stays well defined.
type BoardRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB      *sql.DB
	dialect db.Dialect
}

// NewBoardRepository creates a BoardRepository over db speaking dialect.
func NewBoardRepository(conn *sql.DB, dialect db.Dialect) *BoardRepository {
	return &BoardRepository{DB: conn, dialect: dialect}
}

func (r *BoardRepository) q(query string) string {
	return r.dialect.Rebind(query)
}

// CreateBoard inserts a board owned by ownerID.
func (r *BoardRepository) CreateBoard(ctx context.Context, ownerID, name, color string) (*models.Board, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "Board name is required")
	}

	board := &models.Board{Name: name, Color: color, AccountID: ownerID}
	err := r.DB.QueryRowContext(ctx,
		r.q(`INSERT INTO boards (name, color, account_id) VALUES (?, ?, ?) RETURNING id`),
		name, color, ownerID,
	).Scan(&board.ID)
	if err != nil {
		return nil, fmt.Errorf("insert board: %w", err)
	}
	return board, nil
}

// ListBoards returns every board owned by ownerID, without contents.
func (r *BoardRepository) ListBoards(ctx context.Context, ownerID string) ([]models.Board, error) {
	rows, err := r.DB.QueryContext(ctx,
		r.q(`SELECT id, name, color, account_id FROM boards WHERE account_id = ? ORDER BY id`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := make([]models.Board, 0)
	for rows.Next() {
		var b models.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.Color, &b.AccountID); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return boards, nil
}

// BoardOwner returns the account owning boardID.
func (r *BoardRepository) BoardOwner(ctx context.Context, boardID int64) (string, error) {
	var owner string
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT account_id FROM boards WHERE id = ?`), boardID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("board owner: %w", err)
	}
	return owner, nil
}

// ColumnBoard returns the board a column belongs to.
func (r *BoardRepository) ColumnBoard(ctx context.Context, columnID int64) (int64, error) {
	var boardID int64
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT board_id FROM board_columns WHERE id = ?`), columnID).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("column board: %w", err)
	}
	return boardID, nil
}

// GetBoardWithContents returns the board with its columns and their items,
// both sorted by rank ascending. Columns and items come from a single joined
// query inside one transaction, so no column is returned with a partial set
// of items.
func (r *BoardRepository) GetBoardWithContents(ctx context.Context, boardID int64) (*models.Board, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	board := &models.Board{ID: boardID}
	err = tx.QueryRowContext(ctx,
		r.q(`SELECT name, color, account_id FROM boards WHERE id = ?`),
		boardID,
	).Scan(&board.Name, &board.Color, &board.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}

	rows, err := tx.QueryContext(ctx, r.q(`
		SELECT c.id, c.name, c.sort_order, i.id, i.title, i.content, i.sort_order
		FROM board_columns c
		LEFT JOIN items i ON i.column_id = c.id
		WHERE c.board_id = ?
		ORDER BY c.sort_order, c.id, i.sort_order, i.id
	`), boardID)
	if err != nil {
		return nil, fmt.Errorf("get board contents: %w", err)
	}
	defer rows.Close()

	board.Columns = make([]models.Column, 0)
	for rows.Next() {
		var (
			col       models.Column
			itemID    sql.NullInt64
			itemTitle sql.NullString
			content   sql.NullString
			itemOrder sql.NullInt64
		)
		if err := rows.Scan(&col.ID, &col.Name, &col.Order, &itemID, &itemTitle, &content, &itemOrder); err != nil {
			return nil, fmt.Errorf("scan board contents: %w", err)
		}

		// Rows of one column are adjacent because of the ORDER BY.
		n := len(board.Columns)
		if n == 0 || board.Columns[n-1].ID != col.ID {
			col.BoardID = boardID
			col.Items = make([]models.Item, 0)
			board.Columns = append(board.Columns, col)
			n++
		}
		if !itemID.Valid {
			continue
		}

		item := models.Item{
			ID:       itemID.Int64,
			ColumnID: col.ID,
			Title:    itemTitle.String,
			Order:    itemOrder.Int64,
		}
		if content.Valid {
			text := content.String
			item.Content = &text
		}
		board.Columns[n-1].Items = append(board.Columns[n-1].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate board contents: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read: %w", err)
	}
	return board, nil
}

// CreateEmptyColumn appends an unnamed column to the board, ranked after
// every existing column.
func (r *BoardRepository) CreateEmptyColumn(ctx context.Context, boardID int64) (*models.Column, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, r.q(`SELECT EXISTS(SELECT 1 FROM boards WHERE id = ?)`), boardID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check board: %w", err)
	}
	if !exists {
		return nil, models.ErrNotFound
	}

	col := &models.Column{BoardID: boardID, Items: make([]models.Item, 0)}
	err = tx.QueryRowContext(ctx,
		r.q(`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM board_columns WHERE board_id = ?`),
		boardID,
	).Scan(&col.Order)
	if err != nil {
		return nil, fmt.Errorf("next column rank: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		r.q(`INSERT INTO board_columns (board_id, name, sort_order) VALUES (?, ?, ?) RETURNING id`),
		boardID, "", col.Order,
	).Scan(&col.ID)
	if err != nil {
		return nil, fmt.Errorf("insert column: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit column: %w", err)
	}
	return col, nil
}

// UpdateColumnName overwrites the name of a column and nothing else.
func (r *BoardRepository) UpdateColumnName(ctx context.Context, columnID int64, name string) (*models.Column, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "Column name is required")
	}

	col := &models.Column{ID: columnID, Name: name}
	err := r.DB.QueryRowContext(ctx,
		r.q(`UPDATE board_columns SET name = ? WHERE id = ? RETURNING board_id, sort_order`),
		name, columnID,
	).Scan(&col.BoardID, &col.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update column: %w", err)
	}
	return col, nil
}

// CreateItem appends an item to the column, ranked after every existing item.
// Content starts out empty (NULL).
func (r *BoardRepository) CreateItem(ctx context.Context, columnID int64, title string) (*models.Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("title", "Card title is required")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, r.q(`SELECT EXISTS(SELECT 1 FROM board_columns WHERE id = ?)`), columnID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check column: %w", err)
	}
	if !exists {
		return nil, models.ErrNotFound
	}

	item := &models.Item{ColumnID: columnID, Title: title}
	err = tx.QueryRowContext(ctx,
		r.q(`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM items WHERE column_id = ?`),
		columnID,
	).Scan(&item.Order)
	if err != nil {
		return nil, fmt.Errorf("next item rank: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		r.q(`INSERT INTO items (column_id, title, sort_order) VALUES (?, ?, ?) RETURNING id`),
		columnID, title, item.Order,
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit item: %w", err)
	}
	return item, nil
}
