// Package cigate implements the CI-Gate Waiter run by `swarmctl
// ci-gate`: it polls GitHub for a pull request's required check-run
// completion on its current head SHA, resets its timeout whenever the
// head SHA changes out from under it, fails fast the moment any
// completed required check is non-success, and optionally approves
// and/or merges the PR once every required check is green.
package cigate

import (
	"context"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/cmas-os/swarmctl/internal/config"
	"github.com/cmas-os/swarmctl/internal/swarmerr"
)

// DefaultRequiredChecks is used when a repository's branch protection
// does not enumerate required status-check contexts.
var DefaultRequiredChecks = []string{
	"swarm/state-guard",
	"swarm/policy-guard",
	"quality/no-mocks",
	"quality/no-placeholders",
	"tests/unit-integration",
	"tests/e2e",
	"attest/ci-summary",
}

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// NewClient builds an authenticated GitHub client, grounded on the
// oauth2.StaticTokenSource + go-github pattern used for the rest of the
// codebase's GitHub integrations. apiBase, if non-empty, points the
// client at a GitHub Enterprise instance instead of github.com.
func NewClient(ctx context.Context, token config.Secret, apiBase string) (*github.Client, error) {
	if !token.IsSet() {
		return nil, swarmerr.New(swarmerr.KindCI, "GitHub token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)
	if apiBase == "" {
		return client, nil
	}
	enterprise, err := client.WithEnterpriseURLs(apiBase, apiBase)
	if err != nil {
		return nil, swarmerr.New(swarmerr.KindCI, "configure GitHub Enterprise base URL %q: %v", apiBase, err)
	}
	return enterprise, nil
}

// CheckSummary classifies the required checks found on a head SHA.
type CheckSummary struct {
	Missing []string
	Pending []string
	Failed  []string
	Success []string
}

// AllGreen reports whether every required check succeeded and none are
// missing, pending, or failed.
func (s CheckSummary) AllGreen() bool {
	return len(s.Missing) == 0 && len(s.Pending) == 0 && len(s.Failed) == 0
}

// AnyFailed reports whether any required check has already completed
// with a non-success conclusion, which should fail the wait fast rather
// than let it time out.
func (s CheckSummary) AnyFailed() bool {
	return len(s.Failed) > 0
}

// RequiredChecks returns the branch's required status-check contexts,
// falling back to DefaultRequiredChecks if branch protection is
// unconfigured or unreadable.
func RequiredChecks(ctx context.Context, client *github.Client, repo Repo, branch string) ([]string, error) {
	protection, _, err := client.Repositories.GetBranchProtection(ctx, repo.Owner, repo.Name, branch)
	if err != nil || protection == nil || protection.RequiredStatusChecks == nil ||
		len(protection.RequiredStatusChecks.Contexts) == 0 {
		return DefaultRequiredChecks, nil
	}
	return protection.RequiredStatusChecks.Contexts, nil
}

// SummarizeRequiredChecks fetches the check-runs for sha and classifies
// each required context as success/pending/failed/missing.
func SummarizeRequiredChecks(ctx context.Context, client *github.Client, repo Repo, sha string, required []string) (CheckSummary, error) {
	runs, _, err := client.Checks.ListCheckRunsForRef(ctx, repo.Owner, repo.Name, sha, nil)
	if err != nil {
		return CheckSummary{}, swarmerr.New(swarmerr.KindCI, "list check runs for %s: %v", sha, err)
	}

	byName := make(map[string]*github.CheckRun, len(runs.CheckRuns))
	for _, run := range runs.CheckRuns {
		if run.Name != nil {
			byName[*run.Name] = run
		}
	}

	var summary CheckSummary
	for _, name := range required {
		run, ok := byName[name]
		if !ok {
			summary.Missing = append(summary.Missing, name)
			continue
		}
		if run.Status == nil || *run.Status != "completed" {
			summary.Pending = append(summary.Pending, name)
			continue
		}
		if run.Conclusion != nil && *run.Conclusion == "success" {
			summary.Success = append(summary.Success, name)
		} else {
			summary.Failed = append(summary.Failed, name)
		}
	}
	return summary, nil
}

// WaitOptions configures one CI-gate wait.
type WaitOptions struct {
	Repo         Repo
	PRNumber     int
	Timeout      time.Duration
	PollInterval time.Duration
	Approve      bool
	Merge        bool
	MergeMethod  string
	// Branch overrides the branch used to look up required status
	// checks; empty derives it from the pull request's base ref.
	Branch string
	Now    func() time.Time
	Sleep  func(time.Duration)
}

// WaitResult is the outcome of a completed wait.
type WaitResult struct {
	Summary  CheckSummary
	HeadSHA  string
	Approved bool
	Merged   bool
}

// Wait polls until every required check on the PR's current head SHA
// succeeds, a required check fails, or the timeout elapses. The timeout
// resets whenever the head SHA changes, since a new push invalidates
// however long the prior SHA had already been waited on.
func Wait(ctx context.Context, client *github.Client, opts WaitOptions) (*WaitResult, error) {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	sleepFn := opts.Sleep
	if sleepFn == nil {
		sleepFn = time.Sleep
	}

	limiter := rate.NewLimiter(rate.Every(opts.PollInterval), 1)

	var lastSHA string
	start := nowFn()

	for {
		pr, _, err := client.PullRequests.Get(ctx, opts.Repo.Owner, opts.Repo.Name, opts.PRNumber)
		if err != nil {
			return nil, swarmerr.New(swarmerr.KindCI, "get PR #%d: %v", opts.PRNumber, err)
		}
		if pr.Head == nil || pr.Head.SHA == nil {
			return nil, swarmerr.New(swarmerr.KindCI, "PR #%d has no head SHA", opts.PRNumber)
		}
		sha := *pr.Head.SHA
		if sha != lastSHA {
			lastSHA = sha
			start = nowFn()
		}

		branch := "main"
		if pr.Base != nil && pr.Base.Ref != nil {
			branch = *pr.Base.Ref
		}
		if opts.Branch != "" {
			branch = opts.Branch
		}
		required, err := RequiredChecks(ctx, client, opts.Repo, branch)
		if err != nil {
			return nil, err
		}
		summary, err := SummarizeRequiredChecks(ctx, client, opts.Repo, sha, required)
		if err != nil {
			return nil, err
		}

		if summary.AnyFailed() {
			return &WaitResult{Summary: summary, HeadSHA: sha}, swarmerr.New(swarmerr.KindCI,
				"required checks failed on %s: %v", sha, summary.Failed)
		}

		if summary.AllGreen() {
			result := &WaitResult{Summary: summary, HeadSHA: sha}
			if opts.Approve {
				if err := approveIfNotAlready(ctx, client, opts.Repo, opts.PRNumber); err != nil {
					return result, err
				}
				result.Approved = true
			}
			if opts.Merge {
				if err := mergePR(ctx, client, opts.Repo, opts.PRNumber, sha, opts.MergeMethod); err != nil {
					return result, err
				}
				result.Merged = true
			}
			return result, nil
		}

		if nowFn().Sub(start) > opts.Timeout {
			return &WaitResult{Summary: summary, HeadSHA: sha}, swarmerr.New(swarmerr.KindCI,
				"timed out after %s waiting for required checks on %s: missing=%v pending=%v",
				opts.Timeout, sha, summary.Missing, summary.Pending)
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		sleepFn(0)
	}
}

func approveIfNotAlready(ctx context.Context, client *github.Client, repo Repo, prNumber int) error {
	self, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return swarmerr.New(swarmerr.KindCI, "get authenticated user: %v", err)
	}
	reviews, _, err := client.PullRequests.ListReviews(ctx, repo.Owner, repo.Name, prNumber, nil)
	if err != nil {
		return swarmerr.New(swarmerr.KindCI, "list reviews for PR #%d: %v", prNumber, err)
	}
	for _, r := range reviews {
		if r.User != nil && self.Login != nil && r.User.GetLogin() == *self.Login && r.GetState() == "APPROVED" {
			return nil
		}
	}
	_, _, err = client.PullRequests.CreateReview(ctx, repo.Owner, repo.Name, prNumber, &github.PullRequestReviewRequest{
		Event: github.String("APPROVE"),
		Body:  github.String("All required checks are green."),
	})
	if err != nil {
		return swarmerr.New(swarmerr.KindCI, "approve PR #%d: %v", prNumber, err)
	}
	return nil
}

func mergePR(ctx context.Context, client *github.Client, repo Repo, prNumber int, sha, method string) error {
	if method == "" {
		method = "squash"
	}
	_, _, err := client.PullRequests.Merge(ctx, repo.Owner, repo.Name, prNumber, "", &github.PullRequestOptions{
		SHA:         sha,
		MergeMethod: method,
	})
	if err != nil {
		return swarmerr.New(swarmerr.KindCI, "merge PR #%d: %v", prNumber, err)
	}
	return nil
}

// DetectRepo resolves owner/name from GITHUB_REPO ("owner/name") or from
// GITHUB_OWNER + GITHUB_REPO_NAME.
func DetectRepo(combined, owner, name string) (Repo, error) {
	if combined != "" {
		for i := 0; i < len(combined); i++ {
			if combined[i] == '/' {
				return Repo{Owner: combined[:i], Name: combined[i+1:]}, nil
			}
		}
		return Repo{}, swarmerr.New(swarmerr.KindSchema, "GITHUB_REPO %q must be of the form owner/name", combined)
	}
	if owner != "" && name != "" {
		return Repo{Owner: owner, Name: name}, nil
	}
	return Repo{}, swarmerr.New(swarmerr.KindSchema, "no repository configured: set GITHUB_REPO or GITHUB_OWNER/GITHUB_REPO_NAME")
}
