package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nizhen/weeklog/internal/schema"
)

// fakeEntryRepoForRename 只关心 DistinctEndeavors / RenameEndeavor，
// 其余方法为满足接口的空实现
type fakeEntryRepoForRename struct {
	names       []string
	renameCount int64
	renameErr   error
	calls       int
}

func (f *fakeEntryRepoForRename) GetOverlapping(ctx context.Context, startDate, endDate, endeavor string) ([]schema.Entry, error) {
	return nil, nil
}
func (f *fakeEntryRepoForRename) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.Entry, error) {
	return nil, nil
}
func (f *fakeEntryRepoForRename) GetByID(ctx context.Context, id string) (*schema.Entry, error) {
	return nil, nil
}
func (f *fakeEntryRepoForRename) Create(ctx context.Context, entry *schema.Entry) error { return nil }
func (f *fakeEntryRepoForRename) UpdateContent(ctx context.Context, id, content string) (bool, error) {
	return false, nil
}
func (f *fakeEntryRepoForRename) Delete(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f *fakeEntryRepoForRename) DistinctEndeavors(ctx context.Context) ([]string, error) {
	return f.names, nil
}
func (f *fakeEntryRepoForRename) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	f.calls++
	return f.renameCount, f.renameErr
}

type fakeScoreRepoForRename struct {
	names       []string
	renameCount int64
	renameErr   error
	calls       int
}

func (f *fakeScoreRepoForRename) GetByDateRange(ctx context.Context, startDate, endDate, endeavor string) ([]schema.DailyScore, error) {
	return nil, nil
}
func (f *fakeScoreRepoForRename) GetRecent(ctx context.Context, endeavor string, limit int) ([]schema.DailyScore, error) {
	return nil, nil
}
func (f *fakeScoreRepoForRename) FindByDay(ctx context.Context, date, endeavor string) (*schema.DailyScore, error) {
	return nil, nil
}
func (f *fakeScoreRepoForRename) Create(ctx context.Context, score *schema.DailyScore) error {
	return nil
}
func (f *fakeScoreRepoForRename) Delete(ctx context.Context, id string) (bool, error) {
	return false, nil
}
func (f *fakeScoreRepoForRename) DistinctEndeavors(ctx context.Context) ([]string, error) {
	return f.names, nil
}
func (f *fakeScoreRepoForRename) RenameEndeavor(ctx context.Context, oldName, newName string) (int64, error) {
	f.calls++
	return f.renameCount, f.renameErr
}

func TestEndeavorListEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := NewEndeavorService(
		&fakeEntryRepoForRename{}, &fakeEntryRepoForRename{}, &fakeEntryRepoForRename{},
		&fakeScoreRepoForRename{}, nil)

	names, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{schema.DefaultEndeavor}) {
		t.Fatalf("空库也要返回默认哨兵: %v", names)
	}
}

func TestEndeavorListUnionSorted(t *testing.T) {
	ctx := context.Background()
	svc := NewEndeavorService(
		&fakeEntryRepoForRename{names: []string{"work", "pet project"}},
		&fakeEntryRepoForRename{names: []string{"side"}},
		&fakeEntryRepoForRename{},
		&fakeScoreRepoForRename{names: []string{"work"}},
		nil)

	names, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"pet project", "side", "work"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names=%v, want %v", names, want)
	}
}

func TestRenameCounts(t *testing.T) {
	ctx := context.Background()
	svc := NewEndeavorService(
		&fakeEntryRepoForRename{renameCount: 3},
		&fakeEntryRepoForRename{renameCount: 2},
		&fakeEntryRepoForRename{renameCount: 0},
		&fakeScoreRepoForRename{renameCount: 5},
		nil)

	res, err := svc.Rename(ctx, "old", "new")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := RenameResult{Snippets: 3, Goals: 2, Reflections: 0, DailyScores: 5}
	if res != want {
		t.Fatalf("res=%+v, want %+v", res, want)
	}
	if res.Total() != 10 {
		t.Fatalf("Total=%d, want 10", res.Total())
	}
}

func TestRenameSameNameIsNoop(t *testing.T) {
	ctx := context.Background()
	snippets := &fakeEntryRepoForRename{renameCount: 3}
	svc := NewEndeavorService(snippets, &fakeEntryRepoForRename{}, &fakeEntryRepoForRename{},
		&fakeScoreRepoForRename{}, nil)

	res, err := svc.Rename(ctx, "same", "same")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.Total() != 0 || snippets.calls != 0 {
		t.Fatalf("同名改写应原样返回且不碰仓储: %+v calls=%d", res, snippets.calls)
	}
}

func TestRenameRejectsEmptyNames(t *testing.T) {
	ctx := context.Background()
	svc := NewEndeavorService(
		&fakeEntryRepoForRename{}, &fakeEntryRepoForRename{}, &fakeEntryRepoForRename{},
		&fakeScoreRepoForRename{}, nil)

	if _, err := svc.Rename(ctx, "", "new"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
	if _, err := svc.Rename(ctx, "old", "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("err=%v, want ErrValidation", err)
	}
}

func TestRenamePartialFailureKeepsCounts(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("磁盘坏了")
	scores := &fakeScoreRepoForRename{renameErr: boom}
	svc := NewEndeavorService(
		&fakeEntryRepoForRename{renameCount: 3},
		&fakeEntryRepoForRename{renameCount: 2},
		&fakeEntryRepoForRename{renameCount: 1},
		scores,
		nil)

	res, err := svc.Rename(ctx, "old", "new")
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want 底层错误", err)
	}
	// 部分完成的行数要带回去，调用方据此提示补救
	want := RenameResult{Snippets: 3, Goals: 2, Reflections: 1, DailyScores: 0}
	if res != want {
		t.Fatalf("res=%+v, want %+v", res, want)
	}
}
