package service

// ScopeKind selects which posts a listing covers.
type ScopeKind int

const (
	ScopeAllPublic ScopeKind = iota
	ScopeByCategory
	ScopeByAuthor
)

// Scope is a listing target: every public post, one category, or one author.
type Scope struct {
	Kind     ScopeKind
	Slug     string
	Username string
}

// AllPublic lists every publicly visible post.
func AllPublic() Scope {
	return Scope{Kind: ScopeAllPublic}
}

// ByCategory lists the public posts of the category with the given slug.
func ByCategory(slug string) Scope {
	return Scope{Kind: ScopeByCategory, Slug: slug}
}

// ByAuthor lists the posts of one user. The user sees all of them.
func ByAuthor(username string) Scope {
	return Scope{Kind: ScopeByAuthor, Username: username}
}
