package release

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-github/v66/github"

	"github.com/hakotori/cpdbkit/pkg/models"
)

const (
	// DataRepoOwner and DataRepoName locate the upstream database repository.
	DataRepoOwner = "ventolab"
	DataRepoName  = "cellphonedb-data"

	// zipURLTemplate is where the database zip lives for a given tag.
	zipURLTemplate = "https://raw.githubusercontent.com/ventolab/cellphonedb-data/%s/cellphonedb.zip"
)

// repoReleaseLister is the slice of the GitHub API the lister needs.
// *github.RepositoriesService satisfies it.
type repoReleaseLister interface {
	ListReleases(ctx context.Context, owner, repo string, opts *github.ListOptions) ([]*github.RepositoryRelease, *github.Response, error)
}

// Lister queries upstream for available database releases.
type Lister struct {
	repos repoReleaseLister
}

// NewLister creates a Lister backed by the public GitHub API.
// Unauthenticated access is fine for the request volume involved.
func NewLister() *Lister {
	return &Lister{repos: github.NewClient(nil).Repositories}
}

// NewListerWithService creates a Lister with a custom release service (for testing).
func NewListerWithService(repos repoReleaseLister) *Lister {
	return &Lister{repos: repos}
}

// List returns the remote database versions at or above MinVersion,
// newest first.
func (l *Lister) List(ctx context.Context) ([]models.RemoteRelease, error) {
	var all []models.RemoteRelease

	opts := &github.ListOptions{PerPage: 100}
	for {
		releases, resp, err := l.repos.ListReleases(ctx, DataRepoOwner, DataRepoName, opts)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s releases: %w", DataRepoOwner, DataRepoName, err)
		}

		for _, r := range releases {
			tag := r.GetTagName()
			if !atLeastMin(tag) {
				continue
			}
			rr := models.RemoteRelease{
				Version: tag,
				ZipURL:  ZipURL(tag),
			}
			if ts := r.GetPublishedAt(); !ts.IsZero() {
				rr.PublishedAt = ts.Time
			}
			all = append(all, rr)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sort.Slice(all, func(i, j int) bool {
		vi, _ := parseVersion(all[i].Version)
		vj, _ := parseVersion(all[j].Version)
		return vi.compare(vj) > 0
	})

	return all, nil
}

// ZipURL returns the database zip URL for a release tag.
func ZipURL(version string) string {
	return fmt.Sprintf(zipURLTemplate, version)
}
