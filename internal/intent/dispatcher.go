package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/trellix/internal/models"
	"go.uber.org/zap"
)

// Outcome is the result of dispatching one intent.
type Outcome int

const (
	// Failed means storage or an unexpected condition prevented the change.
	Failed Outcome = iota
	// Applied means the mutation was performed, or the intent was a no-op.
	Applied
	// Rejected means the input was invalid and storage was not touched.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Rejected:
		return "rejected"
	default:
		return "failed"
	}
}

// BoardService is the set of board mutations an intent can perform.
type BoardService interface {
	CreateBoard(ctx context.Context, ownerID, name, color string) (*models.Board, error)
	NewColumn(ctx context.Context, ownerID string, boardID int64) (*models.Column, error)
	RenameColumn(ctx context.Context, ownerID string, boardID, columnID int64, name string) (*models.Column, error)
	AddItem(ctx context.Context, ownerID string, boardID, columnID int64, title string) (*models.Item, error)
}

// Dispatcher routes a parsed intent to the matching board operation.
type Dispatcher struct {
	boards BoardService
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher over boards. logger may be nil.
func NewDispatcher(boards BoardService, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{boards: boards, logger: logger}
}

// Dispatch applies in on behalf of accountID. Authentication is the caller's
// concern and must be settled before parsing.
//
// An Unknown intent performs no storage call and still reports Applied.
func (d *Dispatcher) Dispatch(ctx context.Context, accountID string, in Intent) (Outcome, error) {
	var err error
	switch v := in.(type) {
	case NewColumn:
		_, err = d.boards.NewColumn(ctx, accountID, v.BoardID)
	case UpdateColumn:
		_, err = d.boards.RenameColumn(ctx, accountID, v.BoardID, v.ColumnID, v.Name)
	case CreateItem:
		_, err = d.boards.AddItem(ctx, accountID, v.BoardID, v.ColumnID, v.Title)
	case CreateBoard:
		_, err = d.boards.CreateBoard(ctx, accountID, v.Name, v.Color)
	case Unknown:
		d.logger.Warn("ignoring unknown intent",
			zap.String("intent", v.Name),
			zap.String("account_id", accountID),
		)
		return Applied, nil
	case nil:
		return Rejected, models.NewValidationError("intent", "Missing intent")
	default:
		return Failed, fmt.Errorf("unsupported intent %T", in)
	}

	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return Rejected, err
		}
		return Failed, err
	}
	return Applied, nil
}
