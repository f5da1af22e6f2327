package session

// User is the cached profile of the authenticated account. It is expected to
// be present whenever a token is present; Login keeps that pairing by
// setting both in one step.
type User struct {
	ID              string  `json:"id"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	Phone           *string `json:"phone,omitempty"`
	Role            string  `json:"role"`
	IsEmailVerified bool    `json:"isEmailVerified"`
	Avatar          *string `json:"avatar,omitempty"`
	Language        string  `json:"language,omitempty"`
}

// Snapshot is an atomic copy of the full in-memory session state. Readers
// never see a token without its matching IsAuthenticated value.
type Snapshot struct {
	Token               string
	User                *User
	IsAuthenticated     bool
	IsVerified          bool
	PendingVerification bool
	RegistrationEmail   string
	ProjectID           string
	ExpoPushToken       string

	// Generation increments on every authentication transition. In-flight
	// async work captures it at start and checks it before writing back.
	Generation uint64
}

// PersistedState is the durable subset of the session. PendingVerification
// and RegistrationEmail are deliberately excluded: they describe an in-flight
// UI flow, not durable identity, and must not survive a restart.
type PersistedState struct {
	Token           string `json:"token,omitempty"`
	User            *User  `json:"user,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsVerified      bool   `json:"isVerified"`
	ProjectID       string `json:"projectID,omitempty"`
	ExpoPushToken   string `json:"expoPushToken,omitempty"`
}

func (s Snapshot) persisted() PersistedState {
	return PersistedState{
		Token:           s.Token,
		User:            s.User,
		IsAuthenticated: s.IsAuthenticated,
		IsVerified:      s.IsVerified,
		ProjectID:       s.ProjectID,
		ExpoPushToken:   s.ExpoPushToken,
	}
}
