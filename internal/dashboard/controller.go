// Package dashboard routes the user-facing surface between the auth panel,
// the admin dashboard, and the company dashboard, and owns the selected
// company that file listing and uploads depend on. It has no HTTP or
// rendering dependencies.
package dashboard

import (
	"context"
	"errors"
	"sync"

	"fileportal/internal/auth"
	"fileportal/internal/model"
)

// ErrNotAdmin is returned when a company selection is attempted outside the
// admin dashboard; company users have their own company implicitly selected.
var ErrNotAdmin = errors.New("company selection requires the admin dashboard")

// State is the panel currently shown.
type State int

const (
	StateUnauthenticated State = iota
	StateProfileLoading
	StateAdminDashboard
	StateCompanyDashboard
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateProfileLoading:
		return "profile_loading"
	case StateAdminDashboard:
		return "admin_dashboard"
	case StateCompanyDashboard:
		return "company_dashboard"
	default:
		return "unknown"
	}
}

// ProfileLoader resolves a signed-in account to its application profile.
type ProfileLoader interface {
	Profile(ctx context.Context, accountID string) (*model.Profile, error)
}

// FileLister loads the file list for a company.
type FileLister interface {
	ListByCompany(ctx context.Context, companyID string) ([]model.File, error)
}

// Sessions is the session-change subscription surface of the auth service.
type Sessions interface {
	Subscribe(fn func(*auth.Session)) func()
}

// Controller is the role-based dashboard state machine. All dependencies are
// injected; nothing here is a process-wide singleton.
type Controller struct {
	profiles ProfileLoader
	files    FileLister

	mu          sync.Mutex
	state       State
	profile     *model.Profile
	selectedID  string
	fileList    []model.File
	lastErr     error
	unsubscribe func()
}

// NewController constructs a Controller in the Unauthenticated state.
func NewController(profiles ProfileLoader, files FileLister) *Controller {
	return &Controller{profiles: profiles, files: files, state: StateUnauthenticated}
}

// Attach subscribes the controller to session changes. Detach with Close.
func (c *Controller) Attach(sessions Sessions) {
	c.unsubscribe = sessions.Subscribe(func(sess *auth.Session) {
		c.HandleSession(context.Background(), sess)
	})
}

// Close cancels the session subscription.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// HandleSession drives the state machine from a session change. A nil session
// (sign-out) returns to Unauthenticated and clears the selected company.
func (c *Controller) HandleSession(ctx context.Context, sess *auth.Session) {
	if sess == nil {
		c.mu.Lock()
		c.state = StateUnauthenticated
		c.profile = nil
		c.selectedID = ""
		c.fileList = nil
		c.lastErr = nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	prev := c.state
	c.state = StateProfileLoading
	c.mu.Unlock()

	profile, err := c.profiles.Profile(ctx, sess.AccountID)
	if err != nil {
		// Profile fetch failure leaves the previous panel showing; only the
		// error is recorded.
		c.mu.Lock()
		c.state = prev
		c.lastErr = err
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.profile = profile
	c.lastErr = nil
	if profile.Role == model.RoleAdmin {
		// Admin selects a company explicitly; the selection lives in memory only.
		c.state = StateAdminDashboard
		c.selectedID = ""
		c.fileList = nil
		c.mu.Unlock()
		return
	}
	// Company users have their own company implicitly selected. An empty
	// CompanyID leaves a dashboard with no resolvable file list.
	c.state = StateCompanyDashboard
	c.selectedID = profile.CompanyID
	c.mu.Unlock()

	if profile.CompanyID != "" {
		c.reloadFiles(ctx, profile.CompanyID)
	}
}

// SelectCompany changes the admin's company selection and reloads the file
// list immediately. There is no debouncing and no request generation token;
// overlapping reselections may land out of order.
func (c *Controller) SelectCompany(ctx context.Context, companyID string) error {
	c.mu.Lock()
	if c.state != StateAdminDashboard {
		c.mu.Unlock()
		return ErrNotAdmin
	}
	c.selectedID = companyID
	if companyID == "" {
		c.fileList = nil
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.reloadFiles(ctx, companyID)
	return nil
}

func (c *Controller) reloadFiles(ctx context.Context, companyID string) {
	files, err := c.files.ListByCompany(ctx, companyID)
	c.mu.Lock()
	if err != nil {
		c.lastErr = err
	} else {
		c.fileList = files
	}
	c.mu.Unlock()
}

// UploadVisible reports whether the upload section is shown: admin dashboard
// with a non-empty selection only.
func (c *Controller) UploadVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateAdminDashboard && c.selectedID != ""
}

// State returns the current panel.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Profile returns the loaded profile, or nil.
func (c *Controller) Profile() *model.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// SelectedCompanyID returns the selected company, or empty.
func (c *Controller) SelectedCompanyID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// Files returns the most recently loaded file list.
func (c *Controller) Files() []model.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileList
}

// LastError returns the most recent profile or file-list load failure.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
