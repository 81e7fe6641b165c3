package dashboard

import (
	"context"
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/core/session"
	"github.com/trezcool/mergington/core/view"
	apisvc "github.com/trezcool/mergington/services/api"
)

// Gateway is the remote backend, see apisvc.Client.
type Gateway interface {
	ListActivities(ctx context.Context) (activity.Collection, error)
	Login(ctx context.Context, email, password string) (apisvc.LoginResult, error)
	Signup(ctx context.Context, name, email string) (apisvc.MessageResult, error)
	Unregister(ctx context.Context, name, email, token string) (apisvc.MessageResult, error)
}

var _ Gateway = (*apisvc.Client)(nil)

type Options struct {
	// Layouts lists the pages kept in sync; defaults to the dashboard only.
	Layouts []view.Layout
	// AlwaysRefetch refetches the whole collection after every successful mutation instead of patching it.
	AlwaysRefetch bool
	Clock         view.Clock
}

type page struct {
	sync  *view.Synchronizer
	notes *view.Notifier
}

type handler func(c *Controller, ev Event)

// handlers maps every event to its handler; a handler runs on the UI goroutine.
var handlers = map[EventKind]handler{
	EventLoad:       (*Controller).onRefresh,
	EventRefresh:    (*Controller).onRefresh,
	EventLogin:      (*Controller).onLogin,
	EventLogout:     (*Controller).onLogout,
	EventSignup:     (*Controller).onSignup,
	EventUnregister: (*Controller).onUnregister,
	EventFilter:     (*Controller).onFilter,
	EventFocus:      (*Controller).onFocus,
}

// Controller owns the UI state and reacts to events.
// Except for Dispatch, Do, View and Run, its methods must only be called from the UI goroutine.
type Controller struct {
	gw     Gateway
	store  *activity.Store
	sess   *session.Session
	sched  Scheduler
	logger core.Logger
	opts   Options

	validate   *validator.Validate
	translator ut.Translator

	pages  map[view.Layout]*page
	layout []view.Layout

	ctx            context.Context
	loaded         bool
	pendingRefresh bool
	refreshWaiters []func(error)
	pendingLogin   bool
	pendingAct     map[string]bool
}

func NewController(gw Gateway, store *activity.Store, sess *session.Session, sched Scheduler, logger core.Logger, opts Options) *Controller {
	if len(opts.Layouts) == 0 {
		opts.Layouts = []view.Layout{view.LayoutDashboard}
	}
	validate, translator := core.NewValidator()
	c := &Controller{
		gw:         gw,
		store:      store,
		sess:       sess,
		sched:      sched,
		logger:     logger,
		opts:       opts,
		validate:   validate,
		translator: translator,
		pages:      make(map[view.Layout]*page, len(opts.Layouts)),
		ctx:        context.Background(),
		pendingAct: make(map[string]bool),
	}
	for _, l := range opts.Layouts {
		if _, ok := c.pages[l]; ok {
			continue
		}
		doc := view.NewDocument(l)
		c.pages[l] = &page{
			sync:  view.NewSynchronizer(store, sess, doc),
			notes: view.NewNotifier(doc, opts.Clock, sched.Post),
		}
		c.layout = append(c.layout, l)
	}
	return c
}

// Run makes the calling goroutine the UI goroutine when the scheduler is a *Loop.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	if l, ok := c.sched.(*Loop); ok {
		return l.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Dispatch queues ev for handling on the UI goroutine. It is safe to call from any goroutine.
func (c *Controller) Dispatch(ev Event) {
	c.sched.Post(func() { c.handle(ev) })
}

// Do dispatches ev and waits for its outcome; ctx also bounds the backend calls it triggers.
func (c *Controller) Do(ctx context.Context, ev Event) error {
	done := make(chan error, 1)
	ev.Done = done
	ev.ctx = ctx
	c.Dispatch(ev)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View runs fn with the document of layout on the UI goroutine and waits for it.
func (c *Controller) View(ctx context.Context, layout view.Layout, fn func(doc *view.Document) error) error {
	done := make(chan error, 1)
	c.sched.Post(func() {
		p, ok := c.pages[layout]
		if !ok {
			done <- errors.Errorf("layout %q is not synchronized", layout)
			return
		}
		done <- fn(p.sync.Document())
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Document returns the document of layout; UI goroutine only.
func (c *Controller) Document(layout view.Layout) *view.Document {
	if p, ok := c.pages[layout]; ok {
		return p.sync.Document()
	}
	return nil
}

func (c *Controller) handle(ev Event) {
	h, ok := handlers[ev.Kind]
	if !ok {
		c.logger.Error("unhandled event", errors.Errorf("unknown event kind %q", ev.Kind))
		ev.reply(errors.Errorf("unknown event kind %q", ev.Kind))
		return
	}
	h(c, ev)
}

// page helpers

func (c *Controller) each(fn func(p *page)) {
	for _, l := range c.layout {
		fn(c.pages[l])
	}
}

func (c *Controller) replace() { c.each(func(p *page) { p.sync.Replace() }) }

func (c *Controller) patch(name string) { c.each(func(p *page) { p.sync.Patch(name) }) }

func (c *Controller) sessionChanged() { c.each(func(p *page) { p.sync.SessionChanged() }) }

func (c *Controller) notify(slot view.Slot, level view.Level, text string) {
	c.each(func(p *page) { p.notes.Show(slot, view.Message{Text: text, Level: level}) })
}

func (c *Controller) slotFor(ev Event) view.Slot {
	if ev.FromCard && ev.Activity != "" {
		return view.CardSlot(ev.Activity)
	}
	return view.BannerSlot()
}

func (c *Controller) logArgs(err error, extras map[string]interface{}) []interface{} {
	args := []interface{}{err, extras}
	if id, ok := c.sess.Current(); ok {
		args = append(args, id)
	}
	return args
}

// validateForm returns a *core.ValidationError when form is invalid.
func (c *Controller) validateForm(form interface{}) error {
	if err := c.validate.Struct(form); err != nil {
		return core.TranslateValidation(err, c.translator)
	}
	return nil
}

// refresh

func (c *Controller) onRefresh(ev Event) {
	if c.pendingRefresh && ev.Kind == EventRefresh {
		c.notify(view.BannerSlot(), view.LevelInfo, msgLoadInProgress)
		ev.reply(ErrInProgress)
		return
	}
	c.refetch(ev.context(c.ctx), ev.reply)
}

// refetch replaces the store with a fresh collection, then calls then (if any) with the outcome.
// Concurrent refetches share the single in-flight request.
func (c *Controller) refetch(ctx context.Context, then func(error)) {
	if then != nil {
		c.refreshWaiters = append(c.refreshWaiters, then)
	}
	if c.pendingRefresh {
		return
	}
	c.pendingRefresh = true
	c.sched.Go(func() {
		coll, err := c.gw.ListActivities(ctx)
		c.sched.Post(func() { c.refetched(coll, err) })
	})
}

func (c *Controller) refetched(coll activity.Collection, err error) {
	c.pendingRefresh = false
	waiters := c.refreshWaiters
	c.refreshWaiters = nil

	if err != nil {
		if apisvc.KindOf(err) == apisvc.KindUnknown {
			c.logger.Error("loading activities failed", c.logArgs(err, nil)...)
		}
		if !c.loaded {
			c.each(func(p *page) { p.sync.LoadFailed() })
		} else {
			c.notify(view.BannerSlot(), view.LevelError, msgRefreshFailed)
		}
	} else {
		c.store.ReplaceAll(coll)
		c.loaded = true
		c.replace()
	}
	for _, then := range waiters {
		then(err)
	}
}

// withActivity calls fn with the cached record of name, refetching once when it is not cached.
// abort, if set, runs when the activity cannot be resolved.
func (c *Controller) withActivity(ev Event, fn func(rec activity.Record), abort func()) {
	if rec, ok := c.store.Get(ev.Activity); ok {
		fn(rec)
		return
	}
	c.refetch(ev.context(c.ctx), func(err error) {
		rec, ok := c.store.Get(ev.Activity)
		if err == nil && ok {
			fn(rec)
			return
		}
		if abort != nil {
			abort()
		}
		if err != nil {
			c.notify(c.slotFor(ev), view.LevelError, msgRefreshFailed)
			ev.reply(err)
			return
		}
		c.notFound(ev)
	})
}

func (c *Controller) notFound(ev Event) {
	nf := &NotFoundError{Name: ev.Activity, Suggestion: activity.Suggest(c.store.All(), ev.Activity)}
	text := msgNotFound
	if nf.Suggestion != "" {
		text += ". " + fmt.Sprintf(msgDidYouMean, nf.Suggestion)
	}
	c.notify(view.BannerSlot(), view.LevelError, text)
	ev.reply(nf)
}

// filter & focus

func (c *Controller) onFilter(ev Event) {
	c.each(func(p *page) { p.sync.ApplyFilter(ev.Filter) })
	ev.reply(nil)
}

func (c *Controller) onFocus(ev Event) {
	p, ok := c.pages[view.LayoutDetail]
	if !ok {
		ev.reply(errors.New("detail layout is not synchronized"))
		return
	}
	p.sync.Focus(ev.Activity)
	c.withActivity(ev, func(activity.Record) {
		p.sync.Replace()
		ev.reply(nil)
	}, p.sync.Replace)
}

// login & logout

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func (c *Controller) onLogin(ev Event) {
	slot := view.FormSlot("login")
	form := loginForm{Email: core.CleanString(ev.Email, true), Password: ev.Password}
	if err := c.validateForm(form); err != nil {
		c.notify(slot, view.LevelError, err.Error())
		ev.reply(err)
		return
	}
	if c.pendingLogin {
		c.notify(slot, view.LevelInfo, msgLoginInProgress)
		ev.reply(ErrInProgress)
		return
	}

	c.pendingLogin = true
	ctx := ev.context(c.ctx)
	c.sched.Go(func() {
		res, err := c.gw.Login(ctx, form.Email, form.Password)
		c.sched.Post(func() { c.loggedIn(ev, res, err) })
	})
}

func (c *Controller) loggedIn(ev Event, res apisvc.LoginResult, err error) {
	c.pendingLogin = false
	slot := view.FormSlot("login")

	if err != nil {
		var f *apisvc.Failure
		text := msgLoginFailed
		if errors.As(err, &f) {
			switch {
			case f.Kind == apisvc.KindNetwork:
				text = msgLoginNetwork
			case f.HasDetail:
				text = f.Message
			case f.Kind == apisvc.KindUnknown:
				c.logger.Error("login failed", c.logArgs(err, nil)...)
			}
		}
		c.notify(slot, view.LevelError, text)
		ev.reply(err)
		return
	}

	id := session.Identity{Name: res.TeacherName, Email: res.Email}
	if err = c.sess.Login(id, res.AccessToken); err != nil {
		c.logger.Error("persisting session failed", err, id)
		c.notify(slot, view.LevelError, msgSessionNotPersist)
		ev.reply(err)
		return
	}
	c.each(func(p *page) { p.notes.Clear(slot) })
	c.sessionChanged()
	c.notify(view.BannerSlot(), view.LevelSuccess, fmt.Sprintf(msgWelcome, displayed(id)))
	if c.opts.AlwaysRefetch {
		c.refetch(ev.context(c.ctx), ev.reply)
		return
	}
	ev.reply(nil)
}

func displayed(id session.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

func (c *Controller) onLogout(ev Event) {
	err := c.sess.Logout()
	if err != nil {
		c.logger.Error("clearing session failed", err)
	}
	c.sessionChanged()
	c.notify(view.BannerSlot(), view.LevelInfo, msgLoggedOut)
	ev.reply(err)
}

// signup & unregister

type rosterForm struct {
	Activity string `form:"activity" validate:"required,printable"`
	Email    string `form:"email" validate:"required,email"`
}

func (c *Controller) rosterForm(ev Event) (rosterForm, error) {
	form := rosterForm{Activity: core.CleanString(ev.Activity), Email: core.CleanString(ev.Email, true)}
	return form, c.validateForm(form)
}

// acquire gates one pending mutation per activity.
func (c *Controller) acquire(ev Event) bool {
	if c.pendingAct[ev.Activity] {
		c.notify(c.slotFor(ev), view.LevelInfo, fmt.Sprintf(msgInProgress, ev.Activity))
		ev.reply(ErrInProgress)
		return false
	}
	c.pendingAct[ev.Activity] = true
	return true
}

func (c *Controller) release(name string) { delete(c.pendingAct, name) }

func (c *Controller) onSignup(ev Event) {
	form, err := c.rosterForm(ev)
	if err != nil {
		c.notify(c.slotFor(ev), view.LevelError, err.Error())
		ev.reply(err)
		return
	}
	ev.Activity, ev.Email = form.Activity, form.Email
	if !c.acquire(ev) {
		return
	}

	c.withActivity(ev, func(rec activity.Record) {
		if rec.IsFull() {
			c.release(ev.Activity)
			c.notify(c.slotFor(ev), view.LevelError, msgActivityFull)
			ev.reply(ErrActivityFull)
			return
		}
		ctx := ev.context(c.ctx)
		c.sched.Go(func() {
			res, err := c.gw.Signup(ctx, ev.Activity, ev.Email)
			c.sched.Post(func() { c.signedUp(ev, res, err) })
		})
	}, func() { c.release(ev.Activity) })
}

func (c *Controller) signedUp(ev Event, res apisvc.MessageResult, err error) {
	c.release(ev.Activity)
	if err != nil {
		c.failed(ev, err)
		return
	}
	text := res.Message
	if text == "" {
		text = fmt.Sprintf(msgSignedUp, ev.Email, ev.Activity)
	}
	c.applyMutation(ev, text, func() error { return c.store.AddParticipant(ev.Activity, ev.Email) })
}

func (c *Controller) onUnregister(ev Event) {
	form, err := c.rosterForm(ev)
	if err != nil {
		c.notify(c.slotFor(ev), view.LevelError, err.Error())
		ev.reply(err)
		return
	}
	ev.Activity, ev.Email = form.Activity, form.Email
	if !c.sess.IsAuthenticated() {
		c.notify(c.slotFor(ev), view.LevelError, msgLoginRequired)
		ev.reply(ErrLoginRequired)
		return
	}
	if !c.acquire(ev) {
		return
	}

	c.withActivity(ev, func(activity.Record) {
		ctx, token := ev.context(c.ctx), c.sess.Token()
		c.sched.Go(func() {
			res, err := c.gw.Unregister(ctx, ev.Activity, ev.Email, token)
			c.sched.Post(func() { c.unregistered(ev, res, err) })
		})
	}, func() { c.release(ev.Activity) })
}

func (c *Controller) unregistered(ev Event, res apisvc.MessageResult, err error) {
	c.release(ev.Activity)
	if err != nil {
		c.failed(ev, err)
		return
	}
	text := res.Message
	if text == "" {
		text = fmt.Sprintf(msgUnregistered, ev.Email, ev.Activity)
	}
	c.applyMutation(ev, text, func() error { return c.store.RemoveParticipant(ev.Activity, ev.Email) })
}

// applyMutation mirrors a confirmed server mutation into the store, patching the affected card only.
func (c *Controller) applyMutation(ev Event, text string, mutate func() error) {
	if c.opts.AlwaysRefetch {
		c.refetch(ev.context(c.ctx), func(err error) {
			c.notify(c.slotFor(ev), view.LevelSuccess, text)
			ev.reply(nil)
		})
		return
	}
	if err := mutate(); errors.Cause(err) == activity.ErrNotCached {
		// replaced meanwhile without this activity
		c.refetch(ev.context(c.ctx), nil)
	} else {
		c.patch(ev.Activity)
	}
	c.notify(c.slotFor(ev), view.LevelSuccess, text)
	ev.reply(nil)
}

// failed applies the error policy to a failed mutation; the store is left untouched.
func (c *Controller) failed(ev Event, err error) {
	slot := c.slotFor(ev)
	generic := msgSignupFailed
	if ev.Kind == EventUnregister {
		generic = msgUnregisterFailed
	}

	var f *apisvc.Failure
	if !errors.As(err, &f) {
		f = &apisvc.Failure{Kind: apisvc.KindUnknown, Err: err}
	}
	switch f.Kind {
	case apisvc.KindUnauthorized:
		if lerr := c.sess.Logout(); lerr != nil {
			c.logger.Error("clearing session failed", lerr)
		}
		c.sessionChanged()
		c.notify(slot, view.LevelError, msgSessionExpired)
		// the cache is not trusted anymore once the credential is rejected
		c.refetch(ev.context(c.ctx), nil)
	case apisvc.KindForbidden:
		text := msgNotAuthorized
		if ev.Kind != EventUnregister {
			text = detailOr(f, msgGenericError)
		}
		c.notify(slot, view.LevelError, text)
	case apisvc.KindValidation:
		c.notify(slot, view.LevelError, detailOr(f, msgGenericError))
	case apisvc.KindUnknown:
		c.logger.Error(string(ev.Kind)+" failed", c.logArgs(err, map[string]interface{}{"activity": ev.Activity})...)
		c.notify(slot, view.LevelError, generic)
	default:
		c.notify(slot, view.LevelError, generic)
	}
	ev.reply(err)
}

func detailOr(f *apisvc.Failure, def string) string {
	if f.HasDetail {
		return f.Message
	}
	return def
}
