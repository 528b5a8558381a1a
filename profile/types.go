package profile

// UserProfile holds a user's assistant preferences.
type UserProfile struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Voice        string `json:"voice"` // empty = service default
	MaxChunkSize int    `json:"max_chunk_size"`
	FirstSeen    string `json:"first_seen"`
	LastActive   string `json:"last_active"`
}

// Defaults fills unset fields with service defaults.
func (p *UserProfile) Defaults(maxChunkSize int) {
	if p.MaxChunkSize <= 0 {
		p.MaxChunkSize = maxChunkSize
	}
}
