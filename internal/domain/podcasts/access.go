package podcasts

const (
	RoleAuthor = "author"
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// CanManage reports whether the caller may read or change a podcast's workflow:
// the owning author or any admin.
func CanManage(p *Podcast, userID uint, role string) bool {
	if p == nil {
		return false
	}
	if role == RoleAdmin {
		return true
	}
	return userID != 0 && p.AuthorID == userID
}
