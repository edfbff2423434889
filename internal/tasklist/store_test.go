package tasklist_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"tasktracker/internal/service"
	"tasktracker/internal/tasklist"
	"tasktracker/internal/testutil"
)

const account = "alice.testnet"

func newStore(t *testing.T, opts ...tasklist.Option) (*tasklist.Store, *testutil.FakeService) {
	t.Helper()
	svc := testutil.NewFakeService(account)
	return tasklist.New(svc, testutil.SignedInAs(account), opts...), svc
}

func TestAdd_UsesRemoteID(t *testing.T) {
	store, svc := newStore(t)

	task, err := store.Add(context.Background(), service.NewTask{Text: "Buy milk", Day: "Mon"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	want := []service.Task{{ID: "t1", Text: "Buy milk", Day: "Mon", Reminder: false}}
	if got := store.Tasks(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if task != want[0] {
		t.Errorf("expected returned task %+v, got %+v", want[0], task)
	}
	if store.Loading() {
		t.Error("expected loading to be false after add")
	}
	if svc.CreateCalls != 1 {
		t.Errorf("expected 1 create call, got %d", svc.CreateCalls)
	}
}

func TestAdd_LoadingTrueDuringCall(t *testing.T) {
	store, svc := newStore(t)
	store.ToggleAddForm()

	var loadingDuringCall, formDuringCall bool
	svc.OnCreate = func() {
		loadingDuringCall = store.Loading()
		formDuringCall = store.ShowAddForm()
	}

	if _, err := store.Add(context.Background(), service.NewTask{Text: "x"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !loadingDuringCall {
		t.Error("expected loading while create_task is in flight")
	}
	if formDuringCall {
		t.Error("expected add form hidden once the call starts")
	}
	if store.Loading() {
		t.Error("expected loading cleared")
	}
}

// afterCreateService runs a hook once create_task has committed and before
// the result reaches the store.
type afterCreateService struct {
	*testutil.FakeService
	afterCreate func()
}

func (s *afterCreateService) CreateTask(ctx context.Context, task service.NewTask) (string, error) {
	id, err := s.FakeService.CreateTask(ctx, task)
	if err == nil && s.afterCreate != nil {
		s.afterCreate()
	}
	return id, err
}

// startRefresh runs store.Refresh in the background and gives it a moment
// to finish. The returned channel yields its result.
func startRefresh(store *tasklist.Store) <-chan error {
	done := make(chan error, 1)
	go func() { done <- store.Refresh(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	return done
}

func TestAdd_OverlappingRefreshDoesNotFailAdd(t *testing.T) {
	fake := testutil.NewFakeService(account)
	svc := &afterCreateService{FakeService: fake}
	store := tasklist.New(svc, testutil.SignedInAs(account))

	var refreshed <-chan error
	svc.afterCreate = func() { refreshed = startRefresh(store) }

	task, err := store.Add(context.Background(), service.NewTask{Text: "Buy milk"})
	if err != nil {
		t.Fatalf("Add reported %v for a task the remote store created", err)
	}
	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	want := []service.Task{{ID: task.ID, Text: "Buy milk"}}
	if got := store.Tasks(); !reflect.DeepEqual(got, want) {
		t.Errorf("tasks = %+v, want %+v", got, want)
	}
}

func TestDelete_OverlappingRefreshDoesNotRestoreTask(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "a", Text: "one"})
	svc.AddTask(account, service.Task{ID: "b", Text: "two"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	var refreshed <-chan error
	svc.OnDelete = func() { refreshed = startRefresh(store) }

	if err := store.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := <-refreshed; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, ok := store.Task("a"); ok {
		t.Errorf("deleted task came back: %+v", store.Tasks())
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 task, got %+v", store.Tasks())
	}
}

func TestAdd_RemoteFailureAppendsNothing(t *testing.T) {
	var surfaced []error
	store, svc := newStore(t, tasklist.WithErrorHandler(func(err error) {
		surfaced = append(surfaced, err)
	}))
	boom := errors.New("boom")
	svc.CreateTaskErr = boom

	_, err := store.Add(context.Background(), service.NewTask{Text: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected no tasks, got %d", store.Len())
	}
	if store.Loading() {
		t.Error("expected loading cleared after failure")
	}
	if len(surfaced) != 1 || !errors.Is(surfaced[0], boom) {
		t.Errorf("expected failure surfaced once, got %v", surfaced)
	}
}

func TestAdd_MissingID(t *testing.T) {
	store, svc := newStore(t)
	empty := ""
	svc.ReturnID = &empty

	_, err := store.Add(context.Background(), service.NewTask{Text: "x"})
	if !errors.Is(err, tasklist.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected no tasks, got %d", store.Len())
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	store, svc := newStore(t)
	if _, err := store.Add(context.Background(), service.NewTask{Text: "first"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	dup := "t1"
	svc.ReturnID = &dup

	_, err := store.Add(context.Background(), service.NewTask{Text: "second"})
	if !errors.Is(err, tasklist.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 task, got %d", store.Len())
	}
}

func TestAdd_EmptyTextAccepted(t *testing.T) {
	store, _ := newStore(t)
	if _, err := store.Add(context.Background(), service.NewTask{}); err != nil {
		t.Fatalf("expected empty text to be accepted, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 task, got %d", store.Len())
	}
}

func TestAddThenDelete_LeavesCollectionUnchanged(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "a", Text: "existing"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := store.Tasks()

	task, err := store.Add(context.Background(), service.NewTask{Text: "temp"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Delete(context.Background(), task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := store.Tasks(); !reflect.DeepEqual(got, before) {
		t.Errorf("expected %+v, got %+v", before, got)
	}
}

func TestDelete_Success(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "t1", Text: "Buy milk", Day: "Mon"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := store.Delete(context.Background(), "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := store.Tasks(); len(got) != 0 {
		t.Errorf("expected empty tasks, got %+v", got)
	}
	if store.Loading() {
		t.Error("expected loading cleared")
	}
}

func TestDelete_RemoteFailureKeepsTasks(t *testing.T) {
	var surfaced error
	store, svc := newStore(t, tasklist.WithErrorHandler(func(err error) { surfaced = err }))
	svc.AddTask(account, service.Task{ID: "t1", Text: "Buy milk"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := store.Tasks()
	svc.DeleteTaskErr = errors.New("contract panicked")

	err := store.Delete(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected error")
	}
	if surfaced == nil {
		t.Error("expected error surfaced to handler")
	}
	if got := store.Tasks(); !reflect.DeepEqual(got, before) {
		t.Errorf("expected unchanged %+v, got %+v", before, got)
	}
	if store.Loading() {
		t.Error("expected loading cleared after failure")
	}
}

func TestDelete_PreservesOrder(t *testing.T) {
	store, svc := newStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		svc.AddTask(account, service.Task{ID: id, Text: id})
	}
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if err := store.Delete(context.Background(), "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Add(context.Background(), service.NewTask{Text: "e"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	store.ToggleReminder("c")

	var ids []string
	for _, task := range store.Tasks() {
		ids = append(ids, task.ID)
	}
	want := []string{"a", "c", "d", "t1"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected order %v, got %v", want, ids)
	}
}

func TestToggleReminder_Involution(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "t1", Text: "x", Reminder: true})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	calls := svc.Calls()

	if !store.ToggleReminder("t1") {
		t.Fatal("expected task to match")
	}
	if task, _ := store.Task("t1"); task.Reminder {
		t.Error("expected reminder off after first toggle")
	}
	store.ToggleReminder("t1")
	if task, _ := store.Task("t1"); !task.Reminder {
		t.Error("expected reminder restored after second toggle")
	}
	if svc.Calls() != calls {
		t.Error("toggle must not call the remote store")
	}
	if store.ToggleReminder("missing") {
		t.Error("expected no match for unknown id")
	}
}

func TestToggleReminder_DoesNotMutateSnapshots(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "t1", Text: "x"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snapshot := store.Tasks()

	store.ToggleReminder("t1")
	if snapshot[0].Reminder {
		t.Error("earlier snapshot must not change")
	}
}

func TestRefresh_SignedOut(t *testing.T) {
	svc := testutil.NewFakeService(account)
	status := testutil.SignedInAs(account)
	store := tasklist.New(svc, status)
	if _, err := store.Add(context.Background(), service.NewTask{Text: "x"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	status.SetAccount("")
	calls := svc.Calls()
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := store.Tasks(); len(got) != 0 {
		t.Errorf("expected empty tasks, got %+v", got)
	}
	if svc.Calls() != calls {
		t.Error("signed-out refresh must not call the remote store")
	}
}

func TestRefresh_ReplacesLocalState(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "r1", Text: "one", Day: "Tue"})
	svc.AddTask(account, service.Task{ID: "r2", Text: "two", Reminder: true})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Local-only change, then a change made by another client.
	store.ToggleReminder("r1")
	svc.AddTask(account, service.Task{ID: "r3", Text: "three"})

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	want := svc.Stored(account)
	if got := store.Tasks(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected remote sequence %+v, got %+v", want, got)
	}
	if task, _ := store.Task("r1"); task.Reminder {
		t.Error("expected local-only reminder toggle discarded by refresh")
	}
}

func TestRefresh_FailureKeepsTasks(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "t1"})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	svc.ListTasksErr = errors.New("rpc down")

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 task kept, got %d", store.Len())
	}
}

func TestRefresh_DropsDuplicateIDs(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "t1", Text: "first"})
	svc.AddTask(account, service.Task{ID: "t1", Text: "second"})

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	got := store.Tasks()
	if len(got) != 1 || got[0].Text != "first" {
		t.Errorf("expected first occurrence only, got %+v", got)
	}
}

func TestSignedOut_MutationsMakeNoRemoteCall(t *testing.T) {
	svc := testutil.NewFakeService(account)
	store := tasklist.New(svc, testutil.SignedOut())

	if _, err := store.Add(context.Background(), service.NewTask{Text: "x"}); !errors.Is(err, tasklist.ErrSignedOut) {
		t.Errorf("expected ErrSignedOut from Add, got %v", err)
	}
	if err := store.Delete(context.Background(), "t1"); !errors.Is(err, tasklist.ErrSignedOut) {
		t.Errorf("expected ErrSignedOut from Delete, got %v", err)
	}
	if n, err := store.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("expected 0, nil from Count, got %d, %v", n, err)
	}
	if svc.Calls() != 0 {
		t.Errorf("expected no remote calls, got %d", svc.Calls())
	}
}

func TestSyncAuth_OncePerTransition(t *testing.T) {
	svc := testutil.NewFakeService(account)
	svc.AddTask(account, service.Task{ID: "t1"})
	status := testutil.SignedOut()
	store := tasklist.New(svc, status)
	ctx := context.Background()

	ran, err := store.SyncAuth(ctx)
	if err != nil || !ran {
		t.Fatalf("expected first sync to refresh, got %v, %v", ran, err)
	}
	if svc.ListCalls != 0 {
		t.Error("signed-out sync must not list tasks")
	}

	if ran, _ := store.SyncAuth(ctx); ran {
		t.Error("expected no refresh without a transition")
	}

	status.SetAccount(account)
	if ran, _ := store.SyncAuth(ctx); !ran {
		t.Error("expected refresh on sign-in")
	}
	if ran, _ := store.SyncAuth(ctx); ran {
		t.Error("expected no second refresh for the same transition")
	}
	if svc.ListCalls != 1 {
		t.Errorf("expected exactly 1 list call, got %d", svc.ListCalls)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 task after sign-in, got %d", store.Len())
	}

	status.SetAccount("")
	if ran, _ := store.SyncAuth(ctx); !ran {
		t.Error("expected refresh on sign-out")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty tasks after sign-out, got %d", store.Len())
	}
}

func TestCount(t *testing.T) {
	store, svc := newStore(t)
	svc.AddTask(account, service.Task{ID: "a"})
	svc.AddTask(account, service.Task{ID: "b"})

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}

	svc.CountTasksErr = errors.New("rpc down")
	if _, err := store.Count(context.Background()); err == nil {
		t.Error("expected count error")
	}
}

func TestConcurrentAdds_KeepUniqueIDs(t *testing.T) {
	store, _ := newStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Add(context.Background(), service.NewTask{Text: "x"}); err != nil {
				t.Errorf("Add: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, task := range store.Tasks() {
		if seen[task.ID] {
			t.Fatalf("duplicate id %s", task.ID)
		}
		seen[task.ID] = true
	}
	if len(seen) != 20 {
		t.Errorf("expected 20 tasks, got %d", len(seen))
	}
	if store.Loading() {
		t.Error("expected loading cleared")
	}
}

func TestToggleAddForm(t *testing.T) {
	store, _ := newStore(t)
	if store.ShowAddForm() {
		t.Fatal("expected form closed initially")
	}
	if !store.ToggleAddForm() || !store.ShowAddForm() {
		t.Error("expected form open after toggle")
	}
	if store.ToggleAddForm() {
		t.Error("expected form closed after second toggle")
	}
}
