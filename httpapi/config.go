package httpapi

// Config defines HTTP API settings.
type Config struct {
	Addr     string
	BasePath string
	// UserHeader names the request header carrying the user id. Requests
	// without it are scoped to the anonymous user.
	UserHeader  string
	HistorySize int
}

// DefaultUserHeader is used when Config.UserHeader is empty.
const DefaultUserHeader = "X-User-ID"
