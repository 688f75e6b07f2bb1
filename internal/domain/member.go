package domain

// Member represents user's participation meta for a voice channel.
// No transport or lifecycle logic here.
type Member struct {
	User  *User
	Muted bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User) *Member {
	return &Member{User: user}
}
