package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tstr-dev/tstr/pkg/domain/model"
	"github.com/tstr-dev/tstr/pkg/domain/types"
	"github.com/tstr-dev/tstr/pkg/repository"
	"github.com/tstr-dev/tstr/pkg/utils/logging"
	"github.com/tstr-dev/tstr/pkg/utils/metrics"
)

// PollRevisions observes the default branch and pull requests upstream and
// reconciles them into the repository. Every remote call completes before the
// first write, so a failing API leaves the store untouched.
func (x *UseCase) PollRevisions(ctx context.Context) (*model.ReconcileReport, error) {
	observed, err := x.observeHeads(ctx)
	if err != nil {
		metrics.PollCycles.WithLabelValues("failed").Inc()
		return nil, err
	}

	report, err := x.Reconcile(ctx, observed)
	if err != nil {
		metrics.PollCycles.WithLabelValues("failed").Inc()
		return report, err
	}

	metrics.PollCycles.WithLabelValues("ok").Inc()
	if report.Changed() {
		logging.From(ctx).Info("revisions reconciled", slog.Any("report", report))
	}
	return report, nil
}

func transient(err error, msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errors.Join(types.ErrTransientPoll, err), msg, opts...)
}

func (x *UseCase) observeHeads(ctx context.Context) ([]*model.ObservedHead, error) {
	sc := x.clients.SourceControl()
	if sc == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "source control client is not configured")
	}

	name, sha, err := sc.GetDefaultBranch(ctx)
	if err != nil {
		return nil, transient(err, "failed to get default branch")
	}
	prs, err := sc.ListOpenPullRequests(ctx)
	if err != nil {
		return nil, transient(err, "failed to list open pull requests")
	}

	observed := []*model.ObservedHead{
		{
			Branch:     name,
			Source:     types.SourceLabel(name),
			SHA:        sha,
			PullNumber: types.NoPullRequest,
			Upstream:   model.UpstreamOpen,
		},
	}

	listed := make(map[types.BranchName]bool, len(prs))
	for _, pr := range prs {
		head := pullRequestHead(pr.Number, pr.Source, pr.SHA, pr.State)
		listed[head.Branch] = true
		observed = append(observed, head)
	}

	// A pull request that was merged or closed disappears from the open
	// list. Fetch it by number to learn its final state.
	branches, err := x.clients.Repository().ListBranches(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stored branches")
	}
	for _, b := range branches {
		if !b.IsPullRequest || b.Closed || listed[b.Name] {
			continue
		}
		pr, err := sc.GetPullRequest(ctx, b.PullNumber)
		if err != nil {
			return nil, transient(err, "failed to get pull request", goerr.V("pull_number", b.PullNumber))
		}
		observed = append(observed, pullRequestHead(pr.Number, pr.Source, pr.SHA, pr.State))
	}

	valid := observed[:0]
	for _, head := range observed {
		if err := head.Validate(); err != nil {
			logging.From(ctx).Warn("ignore invalid observed head", slog.Any("error", err))
			continue
		}
		valid = append(valid, head)
	}
	return valid, nil
}

func pullRequestHead(n types.PullNumber, source types.SourceLabel, sha types.CommitSHA, state model.UpstreamState) *model.ObservedHead {
	return &model.ObservedHead{
		Branch:        model.PullHeadName(n),
		Source:        source,
		SHA:           sha,
		IsPullRequest: true,
		PullNumber:    n,
		Upstream:      state,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeNewHead
	outcomeClosed
)

// Reconcile applies one cycle of observed heads to the repository. The result
// does not depend on the order of observed.
func (x *UseCase) Reconcile(ctx context.Context, observed []*model.ObservedHead) (*model.ReconcileReport, error) {
	report := &model.ReconcileReport{}
	for _, head := range observed {
		if err := x.reconcileHead(ctx, head, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (x *UseCase) reconcileHead(ctx context.Context, head *model.ObservedHead, report *model.ReconcileReport) error {
	repo := x.clients.Repository()
	logger := logging.From(ctx).With(
		slog.String("branch", head.Branch.String()),
		slog.String("sha", head.SHA.Short()),
	)

	branch, err := repo.GetBranch(ctx, head.Branch)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if branch == nil {
		if head.IsClosed() {
			count(report, outcomeSkipped)
			return nil
		}

		_, err := repo.CreateBranchWithHead(ctx, &model.Branch{
			Name:          head.Branch,
			Source:        head.Source,
			IsPullRequest: head.IsPullRequest,
			PullNumber:    head.PullNumber,
		}, head.SHA)
		switch {
		case err == nil:
			report.NewBranches++
			metrics.ReconciledHeads.WithLabelValues("new_branch").Inc()
			count(report, outcomeNewHead)
			logger.Info("new branch")
			return nil
		case errors.Is(err, repository.ErrAlreadyExists):
			// Created concurrently; continue as a known branch.
			if branch, err = repo.GetBranch(ctx, head.Branch); err != nil {
				return err
			}
		default:
			return err
		}
	}

	if branch.Closed {
		if head.IsClosed() {
			count(report, outcomeSkipped)
			return nil
		}
		if err := repo.SetBranchClosed(ctx, branch.Name, false); err != nil {
			return err
		}
		report.Reopened++
		metrics.ReconciledHeads.WithLabelValues("reopened").Inc()
		logger.Info("branch reopened")
	}

	_, created, err := repo.AppendHead(ctx, branch.Name, head.SHA)
	if err != nil {
		return err
	}

	if head.IsClosed() {
		// The head must be recorded before the branch is closed.
		if err := repo.SetBranchClosed(ctx, branch.Name, true); err != nil {
			return err
		}
		logger.Info("branch closed", slog.Bool("new_head", created))
		if created {
			report.NewHeads++
			metrics.ReconciledHeads.WithLabelValues("new_head").Inc()
		}
		count(report, outcomeClosed)
		return nil
	}

	if created {
		logger.Info("new head")
		count(report, outcomeNewHead)
		return nil
	}
	count(report, outcomeSkipped)
	return nil
}

func count(report *model.ReconcileReport, o outcome) {
	switch o {
	case outcomeNewHead:
		report.NewHeads++
		metrics.ReconciledHeads.WithLabelValues("new_head").Inc()
	case outcomeClosed:
		report.Closed++
		metrics.ReconciledHeads.WithLabelValues("closed").Inc()
	default:
		report.Skipped++
		metrics.ReconciledHeads.WithLabelValues("skipped").Inc()
	}
}
