package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/atinyakov/trellix/internal/cache"
	"github.com/atinyakov/trellix/internal/models"
	"github.com/redis/go-redis/v9"
)

type mockBoardRepo struct {
	CreateBoardFunc          func(ctx context.Context, ownerID, name, color string) (*models.Board, error)
	ListBoardsFunc           func(ctx context.Context, ownerID string) ([]models.Board, error)
	GetBoardWithContentsFunc func(ctx context.Context, boardID int64) (*models.Board, error)
	BoardOwnerFunc           func(ctx context.Context, boardID int64) (string, error)
	ColumnBoardFunc          func(ctx context.Context, columnID int64) (int64, error)
	CreateEmptyColumnFunc    func(ctx context.Context, boardID int64) (*models.Column, error)
	UpdateColumnNameFunc     func(ctx context.Context, columnID int64, name string) (*models.Column, error)
	CreateItemFunc           func(ctx context.Context, columnID int64, title string) (*models.Item, error)
}

func (m *mockBoardRepo) CreateBoard(ctx context.Context, ownerID, name, color string) (*models.Board, error) {
	return m.CreateBoardFunc(ctx, ownerID, name, color)
}
func (m *mockBoardRepo) ListBoards(ctx context.Context, ownerID string) ([]models.Board, error) {
	return m.ListBoardsFunc(ctx, ownerID)
}
func (m *mockBoardRepo) GetBoardWithContents(ctx context.Context, boardID int64) (*models.Board, error) {
	return m.GetBoardWithContentsFunc(ctx, boardID)
}
func (m *mockBoardRepo) BoardOwner(ctx context.Context, boardID int64) (string, error) {
	return m.BoardOwnerFunc(ctx, boardID)
}
func (m *mockBoardRepo) ColumnBoard(ctx context.Context, columnID int64) (int64, error) {
	return m.ColumnBoardFunc(ctx, columnID)
}
func (m *mockBoardRepo) CreateEmptyColumn(ctx context.Context, boardID int64) (*models.Column, error) {
	return m.CreateEmptyColumnFunc(ctx, boardID)
}
func (m *mockBoardRepo) UpdateColumnName(ctx context.Context, columnID int64, name string) (*models.Column, error) {
	return m.UpdateColumnNameFunc(ctx, columnID, name)
}
func (m *mockBoardRepo) CreateItem(ctx context.Context, columnID int64, title string) (*models.Item, error) {
	return m.CreateItemFunc(ctx, columnID, title)
}

// fakeCache records snapshots in a map and honors generations like the
// Redis cache does.
type fakeCache struct {
	mu          sync.Mutex
	boards      map[int64]*models.Board
	gens        map[int64]int64
	invalidated []int64
	getErr      error
	genErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{boards: make(map[int64]*models.Board), gens: make(map[int64]int64)}
}

func (c *fakeCache) Generation(_ context.Context, boardID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genErr != nil {
		return 0, c.genErr
	}
	return c.gens[boardID], nil
}

func (c *fakeCache) Get(_ context.Context, boardID int64) (*models.Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.boards[boardID], nil
}

func (c *fakeCache) Set(_ context.Context, board *models.Board, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[board.ID] == gen {
		c.boards[board.ID] = board
	}
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, boardID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[boardID]++
	delete(c.boards, boardID)
	c.invalidated = append(c.invalidated, boardID)
	return nil
}

// ownedBy returns a repo where board 1 belongs to owner and column 10 sits on it.
func ownedBy(owner string) *mockBoardRepo {
	return &mockBoardRepo{
		BoardOwnerFunc: func(ctx context.Context, boardID int64) (string, error) {
			if boardID != 1 {
				return "", models.ErrNotFound
			}
			return owner, nil
		},
		ColumnBoardFunc: func(ctx context.Context, columnID int64) (int64, error) {
			switch columnID {
			case 10:
				return 1, nil
			case 20:
				return 2, nil
			}
			return 0, models.ErrNotFound
		},
	}
}

func TestCreateBoard_DefaultsColor(t *testing.T) {
	var gotColor string
	repo := &mockBoardRepo{
		CreateBoardFunc: func(ctx context.Context, ownerID, name, color string) (*models.Board, error) {
			gotColor = color
			return &models.Board{ID: 1, Name: name, Color: color, AccountID: ownerID}, nil
		},
	}
	svc := NewBoardService(repo, nil, nil)

	if _, err := svc.CreateBoard(context.Background(), "owner", "Sprint", ""); err != nil {
		t.Fatalf("CreateBoard returned error: %v", err)
	}
	if gotColor != DefaultBoardColor {
		t.Errorf("color = %q; want %q", gotColor, DefaultBoardColor)
	}
}

func TestCreateBoard_EmptyNameSkipsStorage(t *testing.T) {
	svc := NewBoardService(&mockBoardRepo{}, nil, nil)

	_, err := svc.CreateBoard(context.Background(), "owner", "", "#fff")
	var verr *models.ValidationError
	if !errors.As(err, &verr) || verr.Fields["name"] != "Board name is required" {
		t.Fatalf("CreateBoard error = %v; want name ValidationError", err)
	}
}

func TestBoard_CacheFirstAndOwnership(t *testing.T) {
	calls := 0
	repo := &mockBoardRepo{
		GetBoardWithContentsFunc: func(ctx context.Context, boardID int64) (*models.Board, error) {
			calls++
			return &models.Board{ID: boardID, Name: "B", AccountID: "owner"}, nil
		},
	}
	snapshots := newFakeCache()
	svc := NewBoardService(repo, snapshots, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		board, err := svc.Board(ctx, "owner", 1)
		if err != nil {
			t.Fatalf("Board returned error: %v", err)
		}
		if board.Name != "B" {
			t.Errorf("Board name = %q", board.Name)
		}
	}
	if calls != 1 {
		t.Errorf("repository called %d times; want 1", calls)
	}

	if _, err := svc.Board(ctx, "intruder", 1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign board error = %v; want ErrNotFound", err)
	}
}

func TestBoard_CacheErrorFallsBackToRepo(t *testing.T) {
	repo := &mockBoardRepo{
		GetBoardWithContentsFunc: func(ctx context.Context, boardID int64) (*models.Board, error) {
			return &models.Board{ID: boardID, AccountID: "owner"}, nil
		},
	}
	snapshots := newFakeCache()
	snapshots.getErr = errors.New("redis down")
	svc := NewBoardService(repo, snapshots, nil)

	if _, err := svc.Board(context.Background(), "owner", 1); err != nil {
		t.Fatalf("Board returned error: %v", err)
	}
}

func TestBoard_GenerationErrorSkipsCacheWrite(t *testing.T) {
	repo := &mockBoardRepo{
		GetBoardWithContentsFunc: func(ctx context.Context, boardID int64) (*models.Board, error) {
			return &models.Board{ID: boardID, AccountID: "owner"}, nil
		},
	}
	boards := newFakeCache()
	boards.genErr = errors.New("redis down")
	svc := NewBoardService(repo, boards, nil)

	if _, err := svc.Board(context.Background(), "owner", 1); err != nil {
		t.Fatalf("Board returned error: %v", err)
	}
	if len(boards.boards) != 0 {
		t.Errorf("snapshot cached without a known generation")
	}
}

// A read that loaded the board before a write committed must not leave its
// snapshot in the cache once the write has been acknowledged.
func TestBoard_ReadRacingWriteLeavesNoStaleSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	boards := cache.NewRedisBoardsWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { boards.Close() })

	var (
		mu      sync.Mutex
		columns int
		once    sync.Once
	)
	loaded := make(chan struct{})
	resume := make(chan struct{})

	repo := ownedBy("owner")
	repo.GetBoardWithContentsFunc = func(ctx context.Context, boardID int64) (*models.Board, error) {
		mu.Lock()
		board := &models.Board{ID: boardID, AccountID: "owner", Columns: make([]models.Column, columns)}
		mu.Unlock()

		// Only the first read is held back, after it has loaded its rows.
		first := false
		once.Do(func() { first = true })
		if first {
			close(loaded)
			<-resume
		}
		return board, nil
	}
	repo.CreateEmptyColumnFunc = func(ctx context.Context, boardID int64) (*models.Column, error) {
		mu.Lock()
		defer mu.Unlock()
		columns++
		return &models.Column{ID: int64(columns), BoardID: boardID, Order: int64(columns)}, nil
	}

	svc := NewBoardService(repo, boards, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Board(ctx, "owner", 1)
		done <- err
	}()

	<-loaded
	if _, err := svc.NewColumn(ctx, "owner", 1); err != nil {
		t.Fatalf("NewColumn returned error: %v", err)
	}
	close(resume)
	if err := <-done; err != nil {
		t.Fatalf("racing Board returned error: %v", err)
	}

	board, err := svc.Board(ctx, "owner", 1)
	if err != nil {
		t.Fatalf("Board returned error: %v", err)
	}
	if len(board.Columns) != 1 {
		t.Fatalf("Board after the write returned %d columns; want 1", len(board.Columns))
	}

	// The fresh read is cached again at the new generation.
	cached, err := boards.Get(ctx, 1)
	if err != nil || cached == nil || len(cached.Columns) != 1 {
		t.Errorf("cached snapshot = %+v, %v; want the board with 1 column", cached, err)
	}
}

func TestBoard_ForeignOwnerFromRepo(t *testing.T) {
	repo := &mockBoardRepo{
		GetBoardWithContentsFunc: func(ctx context.Context, boardID int64) (*models.Board, error) {
			return &models.Board{ID: boardID, AccountID: "someone"}, nil
		},
	}
	snapshots := newFakeCache()
	svc := NewBoardService(repo, snapshots, nil)

	if _, err := svc.Board(context.Background(), "owner", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Board error = %v; want ErrNotFound", err)
	}
	if len(snapshots.boards) != 0 {
		t.Errorf("foreign board should not be cached")
	}
}

func TestNewColumn_InvalidatesCache(t *testing.T) {
	repo := ownedBy("owner")
	repo.CreateEmptyColumnFunc = func(ctx context.Context, boardID int64) (*models.Column, error) {
		return &models.Column{ID: 10, BoardID: boardID, Order: 1}, nil
	}
	snapshots := newFakeCache()
	snapshots.boards[1] = &models.Board{ID: 1, AccountID: "owner"}
	svc := NewBoardService(repo, snapshots, nil)

	if _, err := svc.NewColumn(context.Background(), "owner", 1); err != nil {
		t.Fatalf("NewColumn returned error: %v", err)
	}
	if len(snapshots.invalidated) != 1 || snapshots.invalidated[0] != 1 {
		t.Errorf("invalidated = %v; want [1]", snapshots.invalidated)
	}
	if _, ok := snapshots.boards[1]; ok {
		t.Errorf("snapshot still cached after mutation")
	}
}

func TestNewColumn_ForeignBoard(t *testing.T) {
	svc := NewBoardService(ownedBy("someone"), nil, nil)

	if _, err := svc.NewColumn(context.Background(), "owner", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("NewColumn error = %v; want ErrNotFound", err)
	}
}

func TestRenameColumn(t *testing.T) {
	tests := []struct {
		name      string
		boardID   int64
		columnID  int64
		newName   string
		wantErr   error
		wantValid bool
	}{
		{name: "ok", boardID: 1, columnID: 10, newName: "Done"},
		{name: "empty name", boardID: 1, columnID: 10, newName: "", wantValid: true},
		{name: "column on another board", boardID: 1, columnID: 20, newName: "x", wantErr: models.ErrNotFound},
		{name: "missing column", boardID: 1, columnID: 99, newName: "x", wantErr: models.ErrNotFound},
		{name: "missing board", boardID: 5, columnID: 10, newName: "x", wantErr: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated := false
			repo := ownedBy("owner")
			repo.UpdateColumnNameFunc = func(ctx context.Context, columnID int64, name string) (*models.Column, error) {
				updated = true
				return &models.Column{ID: columnID, BoardID: 1, Name: name}, nil
			}
			svc := NewBoardService(repo, newFakeCache(), nil)

			col, err := svc.RenameColumn(context.Background(), "owner", tt.boardID, tt.columnID, tt.newName)
			switch {
			case tt.wantValid:
				var verr *models.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error = %v; want ValidationError", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v; want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if col.Name != tt.newName {
					t.Errorf("name = %q; want %q", col.Name, tt.newName)
				}
			}
			if updated != (err == nil) {
				t.Errorf("storage updated = %v with err = %v", updated, err)
			}
		})
	}
}

func TestAddItem(t *testing.T) {
	repo := ownedBy("owner")
	repo.CreateItemFunc = func(ctx context.Context, columnID int64, title string) (*models.Item, error) {
		return &models.Item{ID: 3, ColumnID: columnID, Title: title, Order: 1}, nil
	}
	snapshots := newFakeCache()
	svc := NewBoardService(repo, snapshots, nil)
	ctx := context.Background()

	item, err := svc.AddItem(ctx, "owner", 1, 10, "Task A")
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if item.Title != "Task A" || item.ColumnID != 10 {
		t.Errorf("unexpected item %+v", item)
	}
	if len(snapshots.invalidated) != 1 {
		t.Errorf("invalidated = %v; want one entry", snapshots.invalidated)
	}

	var verr *models.ValidationError
	if _, err := svc.AddItem(ctx, "owner", 1, 10, " "); !errors.As(err, &verr) {
		t.Errorf("blank title error = %v; want ValidationError", err)
	}
	if _, err := svc.AddItem(ctx, "owner", 1, 0, "x"); !errors.As(err, &verr) {
		t.Errorf("zero column error = %v; want ValidationError", err)
	}
}
