package service

import (
	"context"
	"strings"

	"github.com/atinyakov/trellix/internal/models"
	"go.uber.org/zap"
)

// DefaultBoardColor is used when a board is created without a color.
const DefaultBoardColor = "#e0e0e0"

// BoardRepository defines the persistence operations needed by the BoardService.
type BoardRepository interface {
	// CreateBoard inserts a board owned by ownerID.
	CreateBoard(ctx context.Context, ownerID, name, color string) (*models.Board, error)
	// ListBoards returns the boards owned by ownerID.
	ListBoards(ctx context.Context, ownerID string) ([]models.Board, error)
	// GetBoardWithContents returns a board with its ordered columns and items.
	GetBoardWithContents(ctx context.Context, boardID int64) (*models.Board, error)
	// BoardOwner returns the account that owns boardID.
	BoardOwner(ctx context.Context, boardID int64) (string, error)
	// ColumnBoard returns the board columnID belongs to.
	ColumnBoard(ctx context.Context, columnID int64) (int64, error)
	// CreateEmptyColumn appends an unnamed column to boardID.
	CreateEmptyColumn(ctx context.Context, boardID int64) (*models.Column, error)
	// UpdateColumnName renames columnID.
	UpdateColumnName(ctx context.Context, columnID int64, name string) (*models.Column, error)
	// CreateItem appends an item titled title to columnID.
	CreateItem(ctx context.Context, columnID int64, title string) (*models.Item, error)
}

// BoardCache stores rendered board snapshots. Get returns nil, nil on a miss.
//
// Generation changes on every Invalidate. Set must drop a snapshot whose
// generation is no longer current, so a read that raced a write cannot
// store what it loaded before the write.
type BoardCache interface {
	Generation(ctx context.Context, boardID int64) (int64, error)
	Get(ctx context.Context, boardID int64) (*models.Board, error)
	Set(ctx context.Context, board *models.Board, gen int64) error
	Invalidate(ctx context.Context, boardID int64) error
}

// BoardService implements board business logic for a single owner per board.
// A board owned by someone else is reported as models.ErrNotFound.
type BoardService struct {
	repo   BoardRepository
	cache  BoardCache
	logger *zap.Logger
}

// NewBoardService constructs a BoardService. cache and logger may be nil.
func NewBoardService(repo BoardRepository, cache BoardCache, logger *zap.Logger) *BoardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardService{repo: repo, cache: cache, logger: logger}
}

// CreateBoard creates a board for ownerID. An empty color falls back to
// DefaultBoardColor.
func (s *BoardService) CreateBoard(ctx context.Context, ownerID, name, color string) (*models.Board, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "Board name is required")
	}
	if color == "" {
		color = DefaultBoardColor
	}
	return s.repo.CreateBoard(ctx, ownerID, name, color)
}

// ListBoards returns the boards of ownerID.
func (s *BoardService) ListBoards(ctx context.Context, ownerID string) ([]models.Board, error) {
	return s.repo.ListBoards(ctx, ownerID)
}

// Board returns the full snapshot of boardID if ownerID owns it.
// The cache is consulted first and filled on a miss.
func (s *BoardService) Board(ctx context.Context, ownerID string, boardID int64) (*models.Board, error) {
	if boardID <= 0 {
		return nil, models.ErrNotFound
	}

	// The generation is taken before the database read; a write committed
	// after this point makes the snapshot below unstorable.
	var gen int64
	cacheable := s.cache != nil
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, boardID)
		if err != nil {
			s.logger.Warn("board cache read failed", zap.Int64("board_id", boardID), zap.Error(err))
		}
		if cached != nil {
			if cached.AccountID != ownerID {
				return nil, models.ErrNotFound
			}
			return cached, nil
		}
		if gen, err = s.cache.Generation(ctx, boardID); err != nil {
			s.logger.Warn("board cache generation read failed", zap.Int64("board_id", boardID), zap.Error(err))
			cacheable = false
		}
	}

	board, err := s.repo.GetBoardWithContents(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.AccountID != ownerID {
		return nil, models.ErrNotFound
	}

	if cacheable {
		if err := s.cache.Set(ctx, board, gen); err != nil {
			s.logger.Warn("board cache write failed", zap.Int64("board_id", boardID), zap.Error(err))
		}
	}
	return board, nil
}

// NewColumn appends an empty column to boardID.
func (s *BoardService) NewColumn(ctx context.Context, ownerID string, boardID int64) (*models.Column, error) {
	if err := s.authorizeBoard(ctx, ownerID, boardID); err != nil {
		return nil, err
	}
	col, err := s.repo.CreateEmptyColumn(ctx, boardID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, boardID)
	return col, nil
}

// RenameColumn sets the name of a column on boardID.
func (s *BoardService) RenameColumn(ctx context.Context, ownerID string, boardID, columnID int64, name string) (*models.Column, error) {
	if strings.TrimSpace(name) == "" {
		return nil, models.NewValidationError("name", "Column name is required")
	}
	if err := s.authorizeColumn(ctx, ownerID, boardID, columnID); err != nil {
		return nil, err
	}
	col, err := s.repo.UpdateColumnName(ctx, columnID, name)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, boardID)
	return col, nil
}

// AddItem appends an item to a column on boardID.
func (s *BoardService) AddItem(ctx context.Context, ownerID string, boardID, columnID int64, title string) (*models.Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, models.NewValidationError("title", "Card title is required")
	}
	if err := s.authorizeColumn(ctx, ownerID, boardID, columnID); err != nil {
		return nil, err
	}
	item, err := s.repo.CreateItem(ctx, columnID, title)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, boardID)
	return item, nil
}

func (s *BoardService) authorizeBoard(ctx context.Context, ownerID string, boardID int64) error {
	if boardID <= 0 {
		return models.ErrNotFound
	}
	owner, err := s.repo.BoardOwner(ctx, boardID)
	if err != nil {
		return err
	}
	if owner != ownerID {
		return models.ErrNotFound
	}
	return nil
}

// authorizeColumn also requires the column to sit on boardID.
func (s *BoardService) authorizeColumn(ctx context.Context, ownerID string, boardID, columnID int64) error {
	if columnID <= 0 {
		return models.NewValidationError("columnId", "Column id is required")
	}
	if err := s.authorizeBoard(ctx, ownerID, boardID); err != nil {
		return err
	}
	parent, err := s.repo.ColumnBoard(ctx, columnID)
	if err != nil {
		return err
	}
	if parent != boardID {
		return models.ErrNotFound
	}
	return nil
}

func (s *BoardService) invalidate(ctx context.Context, boardID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, boardID); err != nil {
		s.logger.Warn("board cache invalidation failed", zap.Int64("board_id", boardID), zap.Error(err))
	}
}
