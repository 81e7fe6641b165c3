package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/session"
	"github.com/trezcool/mergington/core/view"
	apisvc "github.com/trezcool/mergington/services/api"
	logsvc "github.com/trezcool/mergington/services/logger"
	inmemstore "github.com/trezcool/mergington/storage/inmem"
)

const (
	chess   = "Chess Club"
	teacher = "t@x.com"
)

// manualScheduler runs nothing until flush.
type manualScheduler struct {
	tasks []func()
	queue []func()
}

func (s *manualScheduler) Go(task func()) { s.tasks = append(s.tasks, task) }

func (s *manualScheduler) Post(fn func()) { s.queue = append(s.queue, fn) }

// drain runs queued closures only; started tasks stay in flight.
func (s *manualScheduler) drain() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

func (s *manualScheduler) flush() {
	for len(s.tasks) > 0 || len(s.queue) > 0 {
		s.drain()
		if len(s.tasks) > 0 {
			task := s.tasks[0]
			s.tasks = s.tasks[1:]
			task()
		}
	}
}

type call struct {
	op, name, email, token string
}

// fakeGateway serves a mutable collection and records calls.
type fakeGateway struct {
	mu    sync.Mutex
	coll  activity.Collection
	calls []call

	listErr       error
	loginErr      error
	signupErr     error
	unregisterErr error
}

func (g *fakeGateway) record(c call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
}

func (g *fakeGateway) count(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int
	for _, c := range g.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (g *fakeGateway) ListActivities(context.Context) (activity.Collection, error) {
	g.record(call{op: "list"})
	if g.listErr != nil {
		return activity.Collection{}, g.listErr
	}
	return activity.NewCollection(g.coll.Records()...), nil
}

func (g *fakeGateway) Login(_ context.Context, email, password string) (apisvc.LoginResult, error) {
	g.record(call{op: "login", email: email})
	if g.loginErr != nil {
		return apisvc.LoginResult{}, g.loginErr
	}
	return apisvc.LoginResult{AccessToken: "tok", TeacherName: "Ms. T", Email: email}, nil
}

func (g *fakeGateway) Signup(_ context.Context, name, email string) (apisvc.MessageResult, error) {
	g.record(call{op: "signup", name: name, email: email})
	if g.signupErr != nil {
		return apisvc.MessageResult{}, g.signupErr
	}
	rec, _ := g.coll.Get(name)
	rec.Participants = append(rec.Participants, email)
	g.coll.Set(rec)
	return apisvc.MessageResult{Message: "Signed up " + email + " for " + name}, nil
}

func (g *fakeGateway) Unregister(_ context.Context, name, email, token string) (apisvc.MessageResult, error) {
	g.record(call{op: "unregister", name: name, email: email, token: token})
	if g.unregisterErr != nil {
		return apisvc.MessageResult{}, g.unregisterErr
	}
	return apisvc.MessageResult{Message: "Unregistered " + email + " from " + name}, nil
}

func chessCollection() activity.Collection {
	return activity.NewCollection(
		activity.Record{
			Name:            chess,
			Description:     "Learn strategies and compete in chess tournaments",
			Schedule:        "Fridays, 3:30 PM - 5:00 PM",
			MaxParticipants: 2,
			Participants:    []string{"a@x.com"},
			Instructors:     []string{teacher},
		},
		activity.Record{
			Name:            "Programming Class",
			Description:     "Learn programming fundamentals",
			Schedule:        "Tuesdays, 3:30 PM - 4:30 PM",
			MaxParticipants: 20,
			Participants:    []string{"emma@mergington.edu"},
			Instructors:     []string{"mr.smith@mergington.edu"},
		},
	)
}

type fixture struct {
	ctrl  *Controller
	gw    *fakeGateway
	sched *manualScheduler
	store *activity.Store
	sess  *session.Session
	slots *inmemstore.Store
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		gw:    &fakeGateway{coll: chessCollection()},
		sched: &manualScheduler{},
		store: activity.NewStore(),
		slots: inmemstore.New(),
	}
	f.sess = session.New(f.slots)
	if opts.Clock == nil {
		opts.Clock = nopClock{}
	}
	f.ctrl = NewController(f.gw, f.store, f.sess, f.sched, logsvc.NewDiscardLogger(), opts)
	return f
}

// do dispatches ev, runs everything it triggers and returns its outcome.
func (f *fixture) do(ev Event) error {
	done := make(chan error, 1)
	ev.Done = done
	f.ctrl.Dispatch(ev)
	f.sched.flush()
	select {
	case err := <-done:
		return err
	default:
		panic("event " + string(ev.Kind) + " did not complete")
	}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	require.NoError(t, f.do(Event{Kind: EventLoad}))
}

func (f *fixture) login(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.do(Event{Kind: EventLogin, Email: email, Password: "secret"}))
}

func (f *fixture) doc() *view.Document { return f.ctrl.Document(view.LayoutDashboard) }

func (f *fixture) message(slot view.Slot) string {
	msg, _ := f.doc().Message(slot)
	return msg.Text
}

type nopTimer struct{}

func (nopTimer) Stop() bool { return true }

type nopClock struct{}

func (nopClock) AfterFunc(time.Duration, func()) view.Timer { return nopTimer{} }

func TestController_Load(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	assert.Equal(t, 1, f.gw.count("list"))
	assert.Equal(t, 2, f.store.Len())
	assert.Equal(t, []string{chess, "Programming Class"}, f.doc().VisibleNames())
}

func TestController_Load_failure(t *testing.T) {
	f := newFixture(t, Options{})
	f.gw.listErr = &apisvc.Failure{Kind: apisvc.KindNetwork}

	err := f.do(Event{Kind: EventLoad})
	assert.Equal(t, apisvc.KindNetwork, apisvc.KindOf(err))
	assert.Equal(t, view.Placeholder{Text: view.LoadFailureText, Visible: true}, f.doc().Placeholder())
	assert.Empty(t, f.doc().Cards())
}

func TestController_Refresh_gated(t *testing.T) {
	f := newFixture(t, Options{})
	first := make(chan error, 1)
	second := make(chan error, 1)
	f.ctrl.Dispatch(Event{Kind: EventRefresh, Done: first})
	f.ctrl.Dispatch(Event{Kind: EventRefresh, Done: second})
	f.sched.drain()

	assert.ErrorIs(t, <-second, ErrInProgress)
	assert.Equal(t, msgLoadInProgress, f.message(view.BannerSlot()))

	f.sched.flush()
	assert.NoError(t, <-first)
	assert.Equal(t, 1, f.gw.count("list"))
}

func TestController_Signup_chessClubFull(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	versionBefore := f.store.Version()

	err := f.do(Event{Kind: EventSignup, Activity: chess, Email: "b@x.com", FromCard: true})
	require.NoError(t, err)

	rec, _ := f.store.Get(chess)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, rec.Participants)
	assert.Equal(t, 0, rec.SpotsLeft())
	assert.Equal(t, versionBefore+1, f.store.Version())
	assert.Equal(t, 1, f.gw.count("list"), "signup must patch, not refetch")

	card, _ := f.doc().Card(chess)
	assert.True(t, card.View.Full, "signup control must be disabled")
	assert.Equal(t, 2, card.Revision)
	other, _ := f.doc().Card("Programming Class")
	assert.Equal(t, 1, other.Revision)
	assert.Equal(t, "Signed up b@x.com for Chess Club", f.message(view.CardSlot(chess)))

	// rejected locally, the backend is not called
	err = f.do(Event{Kind: EventSignup, Activity: chess, Email: "c@x.com", FromCard: true})
	assert.ErrorIs(t, err, ErrActivityFull)
	assert.Equal(t, msgActivityFull, f.message(view.CardSlot(chess)))
	assert.Equal(t, 1, f.gw.count("signup"))
}

func TestController_Signup_validation(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	tests := []struct {
		name  string
		ev    Event
		field string
		want  string
	}{
		{name: "missing email", ev: Event{Kind: EventSignup, Activity: chess}, field: "email", want: "email is required"},
		{name: "invalid email", ev: Event{Kind: EventSignup, Activity: chess, Email: "nope"}, field: "email", want: "email must be a valid email address"},
		{name: "missing activity", ev: Event{Kind: EventSignup, Email: "b@x.com"}, field: "activity", want: "activity is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.do(tt.ev)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.field, vErr.Fields[0].Field)
			assert.Equal(t, tt.want, f.message(view.BannerSlot()))
		})
	}
	assert.Zero(t, f.gw.count("signup"))
}

func TestController_Signup_failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "validation with detail", err: &apisvc.Failure{Kind: apisvc.KindValidation, Status: 400, Message: "Student is already signed up", HasDetail: true}, want: "Student is already signed up"},
		{name: "validation without detail", err: &apisvc.Failure{Kind: apisvc.KindValidation, Status: 404}, want: msgGenericError},
		{name: "network", err: &apisvc.Failure{Kind: apisvc.KindNetwork}, want: msgSignupFailed},
		{name: "unknown", err: &apisvc.Failure{Kind: apisvc.KindUnknown, Status: 500}, want: msgSignupFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.load(t)
			before := f.store.All()
			f.gw.signupErr = tt.err

			err := f.do(Event{Kind: EventSignup, Activity: "Programming Class", Email: "b@x.com", FromCard: true})
			assert.Equal(t, tt.err, err)
			assert.Equal(t, tt.want, f.message(view.CardSlot("Programming Class")))
			assert.Equal(t, before, f.store.All())
			assert.Empty(t, f.ctrl.pendingAct, "pending flag must be released")
		})
	}
}

func TestController_Signup_pendingPerActivity(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	first := make(chan error, 1)
	second := make(chan error, 1)
	other := make(chan error, 1)
	f.ctrl.Dispatch(Event{Kind: EventSignup, Activity: "Programming Class", Email: "b@x.com", Done: first})
	f.ctrl.Dispatch(Event{Kind: EventSignup, Activity: "Programming Class", Email: "c@x.com", Done: second})
	f.ctrl.Dispatch(Event{Kind: EventSignup, Activity: chess, Email: "d@x.com", Done: other})
	f.sched.drain()
	assert.ErrorIs(t, <-second, ErrInProgress)

	f.sched.flush()
	assert.NoError(t, <-first)
	assert.NoError(t, <-other)
	assert.Equal(t, 2, f.gw.count("signup"))
}

func TestController_Signup_unknownActivity(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	err := f.do(Event{Kind: EventSignup, Activity: "Chess Clu", Email: "b@x.com"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, chess, nf.Suggestion)
	assert.Equal(t, `Activity not found. Did you mean "Chess Club"?`, f.message(view.BannerSlot()))
	assert.Equal(t, 2, f.gw.count("list"))
	assert.Zero(t, f.gw.count("signup"))
	assert.Empty(t, f.ctrl.pendingAct)
}

func TestController_Signup_activityAddedServerSide(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	f.gw.coll.Set(activity.Record{Name: "Drama Club", Schedule: "Wednesdays, 4:00 PM", MaxParticipants: 10, Participants: []string{}})

	require.NoError(t, f.do(Event{Kind: EventSignup, Activity: "Drama Club", Email: "b@x.com"}))
	rec, ok := f.store.Get("Drama Club")
	require.True(t, ok)
	assert.Equal(t, []string{"b@x.com"}, rec.Participants)
}

func TestController_Unregister_requiresLogin(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	err := f.do(Event{Kind: EventUnregister, Activity: chess, Email: "a@x.com", FromCard: true})
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, msgLoginRequired, f.message(view.CardSlot(chess)))
	assert.Zero(t, f.gw.count("unregister"))
}

func TestController_Unregister(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	f.login(t, teacher)

	card, _ := f.doc().Card(chess)
	require.True(t, card.View.CanModerate)

	require.NoError(t, f.do(Event{Kind: EventUnregister, Activity: chess, Email: "a@x.com", FromCard: true}))
	rec, _ := f.store.Get(chess)
	assert.Empty(t, rec.Participants)
	assert.Equal(t, 2, rec.SpotsLeft())
	assert.Equal(t, "Unregistered a@x.com from Chess Club", f.message(view.CardSlot(chess)))
	assert.Equal(t, []call{{op: "unregister", name: chess, email: "a@x.com", token: "tok"}}, callsOf(f.gw, "unregister"))
}

func TestController_Unregister_forbidden(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	f.login(t, "other@x.com")
	before := f.store.All()
	f.gw.unregisterErr = &apisvc.Failure{Kind: apisvc.KindForbidden, Status: 403, Message: "Not an instructor", HasDetail: true}

	err := f.do(Event{Kind: EventUnregister, Activity: chess, Email: "a@x.com", FromCard: true})
	assert.True(t, apisvc.IsForbidden(err))
	assert.Equal(t, before, f.store.All())
	assert.Equal(t, msgNotAuthorized, f.message(view.CardSlot(chess)))
	assert.True(t, f.sess.IsAuthenticated())
}

func TestController_Unregister_sessionExpired(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)
	f.login(t, teacher)
	f.gw.unregisterErr = &apisvc.Failure{Kind: apisvc.KindUnauthorized, Status: 401}
	// the server roster moved on meanwhile
	rec, _ := f.gw.coll.Get(chess)
	rec.Participants = append(rec.Participants, "z@x.com")
	f.gw.coll.Set(rec)

	err := f.do(Event{Kind: EventUnregister, Activity: chess, Email: "a@x.com", FromCard: true})
	assert.True(t, apisvc.IsUnauthorized(err))

	assert.False(t, f.sess.IsAuthenticated())
	assert.Zero(t, f.slots.Len(), "both storage slots must be cleared")
	assert.Equal(t, 2, f.gw.count("list"), "a fresh collection must be fetched")
	rec, _ = f.store.Get(chess)
	assert.Equal(t, []string{"a@x.com", "z@x.com"}, rec.Participants)
	card, _ := f.doc().Card(chess)
	assert.False(t, card.View.CanModerate)
	assert.Equal(t, 2, f.doc().Rebuilds(), "ReplaceAll must rebuild every card")
	assert.Equal(t, msgSessionExpired, f.message(view.CardSlot(chess)))
}

func TestController_Login(t *testing.T) {
	f := newFixture(t, Options{})
	f.load(t)

	f.login(t, " T@X.com ")
	id, ok := f.sess.Current()
	require.True(t, ok)
	assert.Equal(t, session.Identity{Name: "Ms. T", Email: teacher}, id)
	assert.Equal(t, 2, f.slots.Len())
	assert.Equal(t, "Welcome, Ms. T", f.message(view.BannerSlot()))
	card, _ := f.doc().Card(chess)
	assert.True(t, card.View.CanModerate)
	assert.Equal(t, 1, f.gw.count("list"))

	require.NoError(t, f.do(Event{Kind: EventLogout}))
	assert.False(t, f.sess.IsAuthenticated())
	assert.Zero(t, f.slots.Len())
	card, _ = f.doc().Card(chess)
	assert.False(t, card.View.CanModerate)
	assert.Zero(t, f.gw.count("logout"))
}

func TestController_Login_failures(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		err  error
		want string
	}{
		{name: "missing password", ev: Event{Kind: EventLogin, Email: teacher}, want: "password is required"},
		{name: "invalid email", ev: Event{Kind: EventLogin, Email: "teacher", Password: "x"}, want: "email must be a valid email address"},
		{name: "rejected", ev: Event{Kind: EventLogin, Email: teacher, Password: "x"}, err: &apisvc.Failure{Kind: apisvc.KindUnauthorized, Status: 401, Message: "Invalid email or password", HasDetail: true}, want: "Invalid email or password"},
		{name: "rejected without detail", ev: Event{Kind: EventLogin, Email: teacher, Password: "x"}, err: &apisvc.Failure{Kind: apisvc.KindUnauthorized, Status: 401}, want: msgLoginFailed},
		{name: "network", ev: Event{Kind: EventLogin, Email: teacher, Password: "x"}, err: &apisvc.Failure{Kind: apisvc.KindNetwork}, want: msgLoginNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			f.gw.loginErr = tt.err

			assert.Error(t, f.do(tt.ev))
			assert.Equal(t, tt.want, f.message(view.FormSlot("login")))
			assert.False(t, f.sess.IsAuthenticated())
			assert.False(t, f.ctrl.pendingLogin)
		})
	}
}

func TestController_Filter(t *testing.T) {
	f := newFixture(t, Options{Layouts: []view.Layout{view.LayoutDashboard, view.LayoutList}})
	f.load(t)

	require.NoError(t, f.do(Event{Kind: EventFilter, Filter: activity.FilterSort{Day: "tuesday"}}))
	assert.Equal(t, []string{"Programming Class"}, f.doc().VisibleNames())
	assert.Equal(t, []string{"Programming Class"}, f.ctrl.Document(view.LayoutList).VisibleNames())
}

func TestController_Focus(t *testing.T) {
	f := newFixture(t, Options{Layouts: []view.Layout{view.LayoutDetail}})
	f.load(t)
	detail := f.ctrl.Document(view.LayoutDetail)

	require.NoError(t, f.do(Event{Kind: EventFocus, Activity: chess}))
	require.Len(t, detail.Cards(), 1)
	assert.Equal(t, chess, detail.Cards()[0].View.Name)

	err := f.do(Event{Kind: EventFocus, Activity: "Programing Class"})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Programming Class", nf.Suggestion)
	assert.Empty(t, detail.Cards())
	assert.True(t, detail.Placeholder().Visible)
}

func TestController_AlwaysRefetch(t *testing.T) {
	f := newFixture(t, Options{AlwaysRefetch: true})
	f.load(t)

	require.NoError(t, f.do(Event{Kind: EventSignup, Activity: "Programming Class", Email: "b@x.com"}))
	assert.Equal(t, 2, f.gw.count("list"))
	assert.Equal(t, 2, f.doc().Rebuilds())
	rec, _ := f.store.Get("Programming Class")
	assert.Equal(t, []string{"emma@mergington.edu", "b@x.com"}, rec.Participants)
}

func TestController_unknownEvent(t *testing.T) {
	f := newFixture(t, Options{})
	assert.Error(t, f.do(Event{Kind: "dance"}))
}

func TestController_Loop(t *testing.T) {
	gw := &fakeGateway{coll: chessCollection()}
	loop := NewLoop(0)
	store := activity.NewStore()
	ctrl := NewController(gw, store, session.New(inmemstore.New()), loop, logsvc.NewDiscardLogger(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- ctrl.Run(ctx) }()

	require.NoError(t, ctrl.Do(ctx, Event{Kind: EventLoad}))
	require.NoError(t, ctrl.Do(ctx, Event{Kind: EventSignup, Activity: chess, Email: "b@x.com"}))

	var visible []string
	require.NoError(t, ctrl.View(ctx, view.LayoutDashboard, func(doc *view.Document) error {
		visible = doc.VisibleNames()
		return nil
	}))
	assert.Equal(t, []string{chess, "Programming Class"}, visible)
	assert.Error(t, ctrl.View(ctx, view.LayoutHome, func(*view.Document) error { return nil }))

	cancel()
	assert.ErrorIs(t, <-stopped, context.Canceled)
	loop.Wait()
}

func callsOf(g *fakeGateway, op string) []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var calls []call
	for _, c := range g.calls {
		if c.op == op {
			calls = append(calls, c)
		}
	}
	return calls
}

func TestController_Signup_patchesEveryPage(t *testing.T) {
	layouts := []view.Layout{view.LayoutDashboard, view.LayoutList, view.LayoutHome, view.LayoutDetail}
	f := newFixture(t, Options{Layouts: layouts})
	prog, _ := f.gw.coll.Get("Programming Class")
	prog.Featured = true
	f.gw.coll.Set(prog)
	f.load(t)
	require.NoError(t, f.do(Event{Kind: EventFocus, Activity: "Programming Class"}))

	rebuilds := make(map[view.Layout]int, len(layouts))
	for _, l := range layouts {
		rebuilds[l] = f.ctrl.Document(l).Rebuilds()
	}

	require.NoError(t, f.do(Event{Kind: EventSignup, Activity: chess, Email: "b@x.com", FromCard: true}))
	assert.Equal(t, 1, f.gw.count("list"))

	tests := []struct {
		layout    view.Layout
		cards     []string
		revisions map[string]int
	}{
		{view.LayoutDashboard, []string{chess, "Programming Class"}, map[string]int{chess: 2, "Programming Class": 1}},
		{view.LayoutList, []string{chess, "Programming Class"}, map[string]int{chess: 2, "Programming Class": 1}},
		{view.LayoutHome, []string{"Programming Class"}, map[string]int{"Programming Class": 1}},
		{view.LayoutDetail, []string{"Programming Class"}, map[string]int{"Programming Class": 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.layout), func(t *testing.T) {
			doc := f.ctrl.Document(tt.layout)
			assert.Equal(t, rebuilds[tt.layout], doc.Rebuilds())

			var names []string
			for _, c := range doc.Cards() {
				names = append(names, c.View.Name)
				assert.Equal(t, tt.revisions[c.View.Name], c.Revision, c.View.Name)
			}
			assert.Equal(t, tt.cards, names)
			assert.Equal(t, 3, doc.Stats().Participants)
		})
	}
}
