package reconcile

import (
	"sort"

	"CaseReview/internal/clio"

	"github.com/shopspring/decimal"
)

// JoinMode picks the granularity at which unbilled amounts attach to cases.
type JoinMode int

const (
	UnbilledByCase JoinMode = iota
	// UnbilledByClient spreads a client's unbilled total evenly over its cases.
	UnbilledByClient
)

type Options struct {
	// Allocate splits a client's outstanding balance across its cases by
	// unbilled share. When false every case carries the full balance.
	Allocate     bool
	UnbilledJoin JoinMode
}

func DefaultOptions() Options {
	return Options{Allocate: true, UnbilledJoin: UnbilledByCase}
}

type Input struct {
	Matters    []clio.Matter
	Balances   []clio.ClientBalance
	Billable   []clio.BillableMatter
	CycleHours clio.CycleHours
}

// Row is one reconciled case.
type Row struct {
	MatterID            string
	MatterNumber        string
	ClientID            string
	ClientName          string
	Stage               string
	ResponsibleAttorney string

	TrustBalance         decimal.Decimal
	ClientOutstanding    decimal.Decimal
	AllocatedOutstanding decimal.Decimal
	UnbilledAmount       decimal.Decimal
	NetBalance           decimal.Decimal

	UnbilledHours float64
	CycleHours    float64

	CustomFields map[string]string
}

type unbilled struct {
	amount decimal.Decimal
	hours  float64
}

// Reconcile joins every matter to its client balance, unbilled work and cycle
// hours and returns one row per matter sorted by net balance, highest first.
// Records that fail to join contribute zero.
func Reconcile(in Input, opts Options) []Row {
	outstanding := indexBalances(in.Balances)
	clients := newClientIndex[string]()

	rows := make([]Row, 0, len(in.Matters))
	groups := map[string][]int{}
	var order []string
	for _, m := range in.Matters {
		due, _ := outstanding.find(m.ClientID, m.ClientName)
		row := Row{
			MatterID:            m.ID,
			MatterNumber:        m.DisplayNumber,
			ClientID:            m.ClientID,
			ClientName:          m.ClientName,
			Stage:               m.StageName,
			ResponsibleAttorney: m.ResponsibleAttorney,
			TrustBalance:        TrustBalance(m.AccountBalances),
			ClientOutstanding:   due,
			CycleHours:          in.CycleHours[m.DisplayNumber],
			CustomFields:        m.CustomFields,
		}
		key := clientKey(m.ClientID, m.ClientName, m.ID)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		clients.update(m.ClientID, m.ClientName, func(v string, present bool) string {
			if present {
				return v
			}
			return key
		})
		groups[key] = append(groups[key], len(rows))
		rows = append(rows, row)
	}

	switch opts.UnbilledJoin {
	case UnbilledByClient:
		byClient := map[string]unbilled{}
		for _, b := range in.Billable {
			key, ok := clients.find(b.ClientID, b.ClientName)
			if !ok {
				continue
			}
			u := byClient[key]
			u.amount = u.amount.Add(Money(b.UnbilledAmount))
			u.hours += Hours(b.UnbilledHours)
			byClient[key] = u
		}
		for _, key := range order {
			members := groups[key]
			u := byClient[key]
			shares := split(u.amount, make([]decimal.Decimal, len(members)))
			for i, idx := range members {
				rows[idx].UnbilledAmount = shares[i]
				rows[idx].UnbilledHours = u.hours / float64(len(members))
			}
		}
	default:
		byID := map[string]unbilled{}
		byNumber := map[string]unbilled{}
		for _, b := range in.Billable {
			u := unbilled{amount: Money(b.UnbilledAmount), hours: Hours(b.UnbilledHours)}
			if b.MatterID != "" {
				byID[b.MatterID] = u
			}
			if b.DisplayNumber != "" {
				byNumber[b.DisplayNumber] = u
			}
		}
		for i := range rows {
			u, ok := byID[rows[i].MatterID]
			if !ok {
				u = byNumber[rows[i].MatterNumber]
			}
			rows[i].UnbilledAmount = u.amount
			rows[i].UnbilledHours = u.hours
		}
	}

	for _, key := range order {
		members := groups[key]
		total := rows[members[0]].ClientOutstanding
		if !opts.Allocate {
			for _, idx := range members {
				rows[idx].AllocatedOutstanding = total
			}
			continue
		}
		weights := make([]decimal.Decimal, len(members))
		for i, idx := range members {
			weights[i] = rows[idx].UnbilledAmount
		}
		for i, share := range split(total, weights) {
			rows[members[i]].AllocatedOutstanding = share
		}
	}

	for i := range rows {
		r := &rows[i]
		r.NetBalance = r.TrustBalance.Sub(r.AllocatedOutstanding).Sub(r.UnbilledAmount)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].NetBalance.GreaterThan(rows[j].NetBalance)
	})
	return rows
}

// split divides total in proportion to weights, rounding each share to cents
// and giving the remainder to the last share so the parts sum to total.
// Non-positive weights count as zero; all-zero weights split evenly.
func split(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	n := len(weights)
	shares := make([]decimal.Decimal, n)
	if n == 0 {
		return shares
	}
	if total.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}

	sum := decimal.Zero
	clamped := make([]decimal.Decimal, n)
	for i, w := range weights {
		if w.IsPositive() {
			clamped[i] = w
			sum = sum.Add(w)
		} else {
			clamped[i] = decimal.Zero
		}
	}
	if sum.IsZero() {
		for i := range clamped {
			clamped[i] = decimal.NewFromInt(1)
		}
		sum = decimal.NewFromInt(int64(n))
	}

	assigned := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = total.Mul(clamped[i]).Div(sum).Round(2)
		assigned = assigned.Add(shares[i])
	}
	shares[n-1] = total.Sub(assigned)
	return shares
}

// clientIndex maps client references to values by id and by folded name. A
// name only links two references when at least one of them has no client id,
// so namesakes under different ids stay apart.
type clientIndex[V any] struct {
	byID      map[string]V
	byName    map[string]V
	anonymous map[string]V
}

func newClientIndex[V any]() clientIndex[V] {
	return clientIndex[V]{byID: map[string]V{}, byName: map[string]V{}, anonymous: map[string]V{}}
}

// update applies f to every slot the reference occupies. present reports
// whether the slot already held a value.
func (c clientIndex[V]) update(clientID, clientName string, f func(v V, present bool) V) {
	if clientID != "" {
		v, ok := c.byID[clientID]
		c.byID[clientID] = f(v, ok)
	}
	name := NameKey(clientName)
	if name == "" {
		return
	}
	v, ok := c.byName[name]
	c.byName[name] = f(v, ok)
	if clientID == "" {
		v, ok := c.anonymous[name]
		c.anonymous[name] = f(v, ok)
	}
}

func (c clientIndex[V]) find(clientID, clientName string) (V, bool) {
	if clientID != "" {
		if v, ok := c.byID[clientID]; ok {
			return v, true
		}
	}
	var zero V
	name := NameKey(clientName)
	if name == "" {
		return zero, false
	}
	names := c.byName
	if clientID != "" {
		names = c.anonymous
	}
	v, ok := names[name]
	return v, ok
}

func indexBalances(balances []clio.ClientBalance) clientIndex[decimal.Decimal] {
	idx := newClientIndex[decimal.Decimal]()
	for _, b := range balances {
		amount := Money(b.Outstanding)
		idx.update(b.ClientID, b.ClientName, func(v decimal.Decimal, _ bool) decimal.Decimal {
			return v.Add(amount)
		})
	}
	return idx
}

// clientKey groups matters of the same client. Matters with neither an id nor
// a name form their own group keyed by matter id.
func clientKey(clientID, clientName, matterID string) string {
	if clientID != "" {
		return "id:" + clientID
	}
	if key := NameKey(clientName); key != "" {
		return "name:" + key
	}
	if matterID != "" {
		return "matter:" + matterID
	}
	return ""
}
