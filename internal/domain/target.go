package domain

// Target is one unit of work: a GitHub login to fetch and flatten.
// Immutable once enqueued.
type Target struct {
	Login string
	// Origin is "owner/repo" when the login was discovered as a
	// repository contributor, empty for directly supplied targets.
	Origin string
}

// NewTarget creates a target for a directly supplied username
func NewTarget(login string) Target {
	return Target{Login: login}
}

// ContributorTarget creates a target for a contributor of a repository
func ContributorTarget(login, ownerRepo string) Target {
	return Target{Login: login, Origin: ownerRepo}
}
