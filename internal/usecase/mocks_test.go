package usecase

import (
	"context"
	"time"

	"github.com/vitos/fx_swing_trader/internal/domain"
)

type mockVenue struct {
	bars        map[domain.Timeframe][]domain.Bar
	barsErr     error
	tick        domain.Tick
	tickErr     error
	constraints domain.SymbolConstraints
	consErr     error

	orderResults []domain.OrderResult
	orderErrs    []error
	orders       []domain.OrderRequest

	positions     []domain.Position
	positionsErr  error
	positionCalls int
	deals         []domain.Deal
	dealsErr      error
	account       domain.AccountSnapshot
	accountErr    error

	modified  []stopChange
	modifyErr error
}

type stopChange struct {
	ticket       int64
	stop, target float64
}

func newMockVenue() *mockVenue {
	return &mockVenue{
		bars: make(map[domain.Timeframe][]domain.Bar),
		constraints: domain.SymbolConstraints{
			VolumeMin:    0.01,
			VolumeMax:    100,
			VolumeStep:   0.01,
			TickValue:    1,
			TickSize:     0.0001,
			ContractSize: 1,
			Tradable:     true,
		},
	}
}

func (m *mockVenue) FetchBars(ctx context.Context, symbol string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	return m.bars[tf], nil
}

func (m *mockVenue) GetTick(ctx context.Context, symbol string) (domain.Tick, error) {
	if m.tickErr != nil {
		return domain.Tick{}, m.tickErr
	}
	return m.tick, nil
}

func (m *mockVenue) SymbolConstraints(ctx context.Context, symbol string) (domain.SymbolConstraints, error) {
	if m.consErr != nil {
		return domain.SymbolConstraints{}, m.consErr
	}
	return m.constraints, nil
}

func (m *mockVenue) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	i := len(m.orders)
	m.orders = append(m.orders, req)
	var err error
	if i < len(m.orderErrs) {
		err = m.orderErrs[i]
	}
	if err != nil {
		return domain.OrderResult{}, err
	}
	if i < len(m.orderResults) {
		return m.orderResults[i], nil
	}
	return domain.OrderResult{Ticket: 1, Code: domain.RetDone}, nil
}

func (m *mockVenue) ModifyStops(ctx context.Context, ticket int64, stop, target float64) error {
	if m.modifyErr != nil {
		return m.modifyErr
	}
	m.modified = append(m.modified, stopChange{ticket: ticket, stop: stop, target: target})
	return nil
}

func (m *mockVenue) OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	m.positionCalls++
	if m.positionsErr != nil {
		return nil, m.positionsErr
	}
	if symbol == "" {
		return m.positions, nil
	}
	var out []domain.Position
	for _, p := range m.positions {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockVenue) ClosedDeals(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	if m.dealsErr != nil {
		return nil, m.dealsErr
	}
	return m.deals, nil
}

func (m *mockVenue) AccountSnapshot(ctx context.Context) (domain.AccountSnapshot, error) {
	if m.accountErr != nil {
		return domain.AccountSnapshot{}, m.accountErr
	}
	return m.account, nil
}

type mockJournal struct {
	rows        []domain.JournalRow
	openedCount map[string]int // keyed by since truncated to RFC3339
	losses      int
	closedPnL   float64
	closedCount int
	err         error
}

func newMockJournal() *mockJournal {
	return &mockJournal{openedCount: make(map[string]int)}
}

func (m *mockJournal) Append(ctx context.Context, row domain.JournalRow) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *mockJournal) OpenedCountSince(ctx context.Context, since time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if n, ok := m.openedCount[since.UTC().Format(time.RFC3339)]; ok {
		return n, nil
	}
	n := 0
	for _, r := range m.rows {
		if r.Status == domain.StatusOpened && !r.Time.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockJournal) ClosedPnLBetween(ctx context.Context, from, to time.Time) (int, float64, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	return m.closedCount, m.closedPnL, nil
}

func (m *mockJournal) ConsecutiveLosses(ctx context.Context, dayStart time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.losses, nil
}

func (m *mockJournal) rowsWithStatus(status domain.TradeStatus) []domain.JournalRow {
	var out []domain.JournalRow
	for _, r := range m.rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type mockFlags struct {
	flags map[int64]domain.OneShotFlags
	err   error
}

func newMockFlags() *mockFlags {
	return &mockFlags{flags: make(map[int64]domain.OneShotFlags)}
}

func (m *mockFlags) Flags(ctx context.Context, ticket int64) (domain.OneShotFlags, error) {
	if m.err != nil {
		return domain.OneShotFlags{}, m.err
	}
	return m.flags[ticket], nil
}

func (m *mockFlags) SetFlags(ctx context.Context, ticket int64, flags domain.OneShotFlags) error {
	if m.err != nil {
		return m.err
	}
	m.flags[ticket] = flags
	return nil
}

func (m *mockFlags) ClearFlags(ctx context.Context, ticket int64) error {
	delete(m.flags, ticket)
	return nil
}

type mockNotifier struct {
	messages []string
}

func (m *mockNotifier) Notify(ctx context.Context, msg string) error {
	m.messages = append(m.messages, msg)
	return nil
}
