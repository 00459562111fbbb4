// Package presence reflects the session state of one browser in the
// navigation bar and keeps it current when another tab changes it.
package presence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/domain"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
)

// Presence is what the navigation bar shows. Staff is a hint only.
type Presence struct {
	LoggedIn bool `json:"logged_in"`
	Staff    bool `json:"staff"`
}

// MenuItem is one navigation bar entry.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Menu lists the entries shown for p.
func Menu(p Presence) []MenuItem {
	if !p.LoggedIn {
		return []MenuItem{
			{Label: "Staff Login", Path: "/staff-login"},
			{Label: "Sign In", Path: "/login"},
			{Label: "Sign Up", Path: "/signup"},
		}
	}
	items := []MenuItem{
		{Label: "Report Waste", Path: "/report-waste"},
		{Label: "Report Food", Path: "/report-food"},
		{Label: "Live Map", Path: "/live-map"},
		{Label: "GreenBot", Path: "/chatbot"},
	}
	if p.Staff {
		items = append(items, MenuItem{Label: "Staff Portal", Path: "/staff/dashboard"})
	}
	return items
}

// Indicator observes one credential store.
type Indicator struct {
	store      *credential.Store
	dispatcher events.Dispatcher
	nav        navigation.Navigator
	loginPath  string
	logger     *zap.Logger
}

// NewIndicator builds an indicator for store.
func NewIndicator(store *credential.Store, dispatcher events.Dispatcher, nav navigation.Navigator, loginPath string, logger *zap.Logger) *Indicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indicator{
		store:      store,
		dispatcher: dispatcher,
		nav:        nav,
		loginPath:  loginPath,
		logger:     logger,
	}
}

// Snapshot reads the current presence from the store.
func (i *Indicator) Snapshot(ctx context.Context) Presence {
	loggedIn := i.store.HasCredential(ctx)
	return Presence{
		LoggedIn: loggedIn,
		Staff:    loggedIn && i.store.Role(ctx) == domain.RoleStaff,
	}
}

// Watch emits the current presence and then a fresh one whenever the store's
// namespace changes, skipping repeats. The channel closes when ctx ends.
func (i *Indicator) Watch(ctx context.Context) <-chan Presence {
	out := make(chan Presence, 1)
	var (
		mu     sync.Mutex
		closed bool
		last   *Presence
	)
	emit := func(p Presence) {
		mu.Lock()
		defer mu.Unlock()
		if closed || (last != nil && *last == p) {
			return
		}
		last = &p
		// keep only the newest value for slow readers
		select {
		case <-out:
		default:
		}
		out <- p
	}

	unsubscribe := i.dispatcher.Subscribe(events.EventStorageChanged, func(evCtx context.Context, e events.Event) error {
		if e.Namespace != i.store.Namespace() {
			return nil
		}
		emit(i.Snapshot(ctx))
		return nil
	})
	emit(i.Snapshot(ctx))

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out
}

// Logout is the voluntary sign-out: clear credentials and role, tell every
// other view, and navigate to the login view.
func (i *Indicator) Logout(ctx context.Context) error {
	if err := i.store.Clear(ctx); err != nil {
		return err
	}
	if err := i.dispatcher.Publish(ctx, events.NewStorageChanged(i.store.Namespace(), credential.KeyAccess, credential.KeyRefresh, credential.KeyRole)); err != nil {
		i.logger.Warn("broadcast logout", zap.String("namespace", i.store.Namespace()), zap.Error(err))
	}
	i.logger.Info("logged out", zap.String("namespace", i.store.Namespace()))
	if i.nav != nil {
		i.nav.Redirect(ctx, i.loginPath, false)
	}
	return nil
}
