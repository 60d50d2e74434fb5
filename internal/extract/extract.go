// Package extract pulls deals and their persons from the CRM and upserts
// them into the record store.
package extract

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/normalize"
	"github.com/sells-group/dealsync/internal/resilience"
	"github.com/sells-group/dealsync/internal/store"
	"github.com/sells-group/dealsync/pkg/pipedrive"
)

// Custom person fields in the CRM account, addressed by hashed key.
var (
	DefaultBenefitIDKeys = []string{
		"ca8fd59fb797a92665b29c4ee38a45524a6ad51b",
		"a1a2bdea3ec02b42cc9baa376fd5ac79a750813b",
	}
	DefaultAddressKeys = []string{
		"2a556bd22d2c0374f609f6fafcca7949cf9b2ba2",
		"c003c48faccbde63860456ee2f1a5a50f25529a5",
		"14d2126d1386f43fdbd18ca803c3faab87315d46",
		"2d762978f235765bbd5fc547c55beb173c0a7101",
	}
)

// DefaultPageSize is the number of deals per listing page.
const DefaultPageSize = 100

// Config controls an extraction run.
type Config struct {
	PageSize      int
	BenefitIDKeys []string // first non-empty wins
	AddressKeys   []string // space-joined in order
	Retry         resilience.RetryConfig
	RunID         string
}

// DefaultConfig returns the standard extraction settings.
func DefaultConfig() Config {
	return Config{
		PageSize:      DefaultPageSize,
		BenefitIDKeys: DefaultBenefitIDKeys,
		AddressKeys:   DefaultAddressKeys,
		Retry:         resilience.DefaultRetryConfig(),
	}
}

// Page describes one listing page to fetch.
type Page struct {
	Index int
	Start int
	Limit int
}

// Stats summarizes a run.
type Stats struct {
	Pages    int64 `json:"pages" yaml:"pages"`
	Records  int64 `json:"records" yaml:"records"`
	Inserted int64 `json:"inserted" yaml:"inserted"`
	Updated  int64 `json:"updated" yaml:"updated"`
	Skipped  int64 `json:"skipped" yaml:"skipped"`
	Failed   int64 `json:"failed" yaml:"failed"`
}

// Extractor copies CRM deals and persons into a store.
type Extractor struct {
	client pipedrive.Client
	store  store.Store
	cfg    Config
	log    *zap.Logger

	pages, records, inserted, updated, skipped, failed atomic.Int64
}

// New creates an Extractor. Zero config fields take their defaults.
func New(client pipedrive.Client, st store.Store, cfg Config) *Extractor {
	d := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = d.PageSize
	}
	if len(cfg.BenefitIDKeys) == 0 {
		cfg.BenefitIDKeys = d.BenefitIDKeys
	}
	if len(cfg.AddressKeys) == 0 {
		cfg.AddressKeys = d.AddressKeys
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = d.Retry
	}
	return &Extractor{
		client: client,
		store:  st,
		cfg:    cfg,
		log:    zap.L().With(zap.String("run_id", cfg.RunID)),
	}
}

// Run fetches every listing page concurrently. All page tasks run to
// completion; the first fatal error is returned after they settle. Records
// persisted before a failure stay persisted.
func (e *Extractor) Run(ctx context.Context) (Stats, error) {
	pages, err := e.CountPages(ctx)
	if err != nil {
		return e.stats(), err
	}
	e.log.Info("extract: starting", zap.Int("pages", len(pages)), zap.Int("page_size", e.cfg.PageSize))

	var g errgroup.Group
	for _, p := range pages {
		g.Go(func() error {
			return e.FetchPage(ctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Error("extract: run failed", zap.Error(err))
		return e.stats(), err
	}

	st := e.stats()
	e.log.Info("extract: complete",
		zap.Int64("records", st.Records),
		zap.Int64("inserted", st.Inserted),
		zap.Int64("updated", st.Updated),
		zap.Int64("skipped", st.Skipped),
		zap.Int64("failed", st.Failed),
	)
	return st, nil
}

// CountPages reads the listing summary and returns one Page per PageSize
// records.
func (e *Extractor) CountPages(ctx context.Context) ([]Page, error) {
	total, err := resilience.DoVal(ctx, e.retry("deal_summary"), e.client.DealSummary)
	if err != nil {
		return nil, eris.Wrap(err, "extract: deal summary")
	}
	n := (total + e.cfg.PageSize - 1) / e.cfg.PageSize
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		pages = append(pages, Page{Index: i, Start: i * e.cfg.PageSize, Limit: e.cfg.PageSize})
	}
	e.log.Debug("extract: counted pages", zap.Int("total", total), zap.Int("pages", n))
	return pages, nil
}

// FetchPage fetches one listing page and persists each record's person and
// deal. Records without a usable person or deal are skipped; CRM errors are
// fatal to the page.
func (e *Extractor) FetchPage(ctx context.Context, p Page) error {
	items, err := resilience.DoVal(ctx, e.retry("list_deals"), func(ctx context.Context) ([]pipedrive.DealItem, error) {
		return e.client.ListDeals(ctx, p.Start, p.Limit)
	})
	if err != nil {
		return eris.Wrapf(err, "extract: page %d", p.Index)
	}
	e.pages.Add(1)
	if len(items) == 0 {
		e.log.Info("extract: empty page", zap.Int("page", p.Index), zap.Int("start", p.Start))
		return nil
	}

	for _, item := range items {
		e.records.Add(1)

		person, err := e.FetchPerson(ctx, item.Person)
		if err != nil {
			return eris.Wrapf(err, "extract: page %d deal %s", p.Index, item.ID)
		}
		if person == nil {
			e.skip(ctx, resilience.FailurePerson, item.ID, "no person for deal")
			continue
		}

		deal, err := e.FetchDeal(ctx, item.ID)
		if err != nil {
			return eris.Wrapf(err, "extract: page %d deal %s", p.Index, item.ID)
		}
		if deal == nil {
			e.skip(ctx, resilience.FailureDeal, item.ID, "no deal detail")
			continue
		}
		if deal.PersonID == "" {
			deal.PersonID = person.ID
		}

		contact := model.NewContact(*person, *deal, item.UpdateTime)
		e.persist(ctx, "person", person.ID, func(ctx context.Context) (store.UpsertResult, error) {
			return e.store.UpsertContact(ctx, contact)
		})
		e.persist(ctx, "deal", deal.ID, func(ctx context.Context) (store.UpsertResult, error) {
			return e.store.UpsertDeal(ctx, *deal)
		})
	}
	return nil
}

// FetchPerson resolves a person reference and fetches the person, merging
// the configured custom fields. It returns nil when the reference is
// unusable or the CRM has no data for it. Phones and emails that fail
// normalization are dropped.
func (e *Extractor) FetchPerson(ctx context.Context, ref pipedrive.PersonRef) (*model.Person, error) {
	id, ok := ref.Resolve()
	if !ok {
		return nil, nil
	}
	detail, err := resilience.DoVal(ctx, e.retry("get_person"), func(ctx context.Context) (*pipedrive.PersonDetail, error) {
		return e.client.GetPerson(ctx, id)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: person %s", id)
	}
	if detail == nil {
		return nil, nil
	}

	p := &model.Person{ID: id}
	for _, key := range e.cfg.BenefitIDKeys {
		if v := detail.CustomField(key); v != "" {
			p.BenefitID = v
			break
		}
	}

	var parts []string
	for _, key := range e.cfg.AddressKeys {
		if v := detail.CustomField(key); v != "" {
			parts = append(parts, v)
		}
	}
	p.Address = strings.TrimSpace(strings.Join(parts, " "))

	var phones []string
	for _, v := range detail.Phones {
		if v = normalize.Phone(strings.ReplaceAll(v, "-", "")); v != "" {
			phones = append(phones, v)
		}
	}
	p.Phone = strings.Join(phones, ", ")

	var emails []string
	for _, v := range detail.Emails {
		if v = normalize.Email(v); v != "" {
			emails = append(emails, v)
		}
	}
	p.Email = strings.Join(emails, ", ")
	return p, nil
}

// FetchDeal fetches a deal's detail. A missing or unknown stage is fatal.
// It returns nil when the CRM has no data for the deal.
func (e *Extractor) FetchDeal(ctx context.Context, id string) (*model.Deal, error) {
	detail, err := resilience.DoVal(ctx, e.retry("get_deal"), func(ctx context.Context) (*pipedrive.DealDetail, error) {
		return e.client.GetDeal(ctx, id)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extract: deal %s", id)
	}
	if detail == nil {
		return nil, nil
	}
	if detail.StageOrder == nil {
		return nil, eris.Wrapf(model.ErrUnknownStage, "extract: deal %s has no stage", id)
	}
	stage, err := model.StageFromNumber(*detail.StageOrder)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: deal %s", id)
	}

	personID, _ := detail.Person.Resolve()
	return &model.Deal{
		ID:         id,
		PersonID:   personID,
		Stage:      &stage,
		Outcome:    model.OutcomeFromSource(detail.Status),
		AssignedTo: detail.AssignedTo,
		Name:       detail.Person.Name,
		UpdatedAt:  detail.UpdateTime,
	}, nil
}

// persist runs one upsert. Store errors are logged and recorded, never
// returned.
func (e *Extractor) persist(ctx context.Context, kind, id string, fn func(context.Context) (store.UpsertResult, error)) {
	res, err := fn(ctx)
	if err == nil {
		if res == store.Inserted {
			e.inserted.Add(1)
		} else {
			e.updated.Add(1)
		}
		e.log.Debug("extract: "+kind+" "+res.String(), zap.String("id", id))
		return
	}

	e.failed.Add(1)
	if store.IsDuplicateKey(err) {
		e.log.Warn("extract: duplicate key on upsert", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	} else {
		e.log.Error("extract: upsert failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	}
	e.record(ctx, resilience.FailureStore, kind+":"+id, err)
}

func (e *Extractor) skip(ctx context.Context, kind resilience.FailureKind, dealID, reason string) {
	e.skipped.Add(1)
	e.log.Info("extract: skipping record", zap.String("deal_id", dealID), zap.String("reason", reason))
	e.record(ctx, kind, dealID, eris.New(reason))
}

func (e *Extractor) record(ctx context.Context, kind resilience.FailureKind, ref string, err error) {
	entry := resilience.NewFailure(e.cfg.RunID, kind, ref, err)
	if rerr := e.store.RecordFailure(ctx, entry); rerr != nil {
		e.log.Warn("extract: failed to record failure", zap.String("ref", ref), zap.Error(rerr))
	}
}

func (e *Extractor) retry(op string) resilience.RetryConfig {
	cfg := e.cfg.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("pipedrive", op)
	}
	base := cfg.ShouldRetry
	if base == nil {
		base = resilience.IsTimeout
	}
	cfg.ShouldRetry = func(err error) bool {
		return !isRejection(err) && base(err)
	}
	return cfg
}

// isRejection reports whether the CRM answered with a non-200 status. The
// body may mention a timeout; it is still a rejection and never retried.
func isRejection(err error) bool {
	var se *pipedrive.StatusError
	return errors.As(err, &se)
}

func (e *Extractor) stats() Stats {
	return Stats{
		Pages:    e.pages.Load(),
		Records:  e.records.Load(),
		Inserted: e.inserted.Load(),
		Updated:  e.updated.Load(),
		Skipped:  e.skipped.Load(),
		Failed:   e.failed.Load(),
	}
}
