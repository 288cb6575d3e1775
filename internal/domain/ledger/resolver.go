package ledger

import "strings"

// EntityResolver groups orders and payments into billable entities
type EntityResolver interface {
	Resolve(orders []Order, payments []Payment, customers []Customer) *Resolution
}

// NameKeyedResolver attributes a transaction to a registered customer when its
// customer reference matches a known customer, and otherwise to a guest keyed
// by the customer name on the record.
type NameKeyedResolver struct {
	placeholder string
	guestKey    GuestKeyFunc
}

// ResolverOption configures a NameKeyedResolver
type ResolverOption func(*NameKeyedResolver)

// WithGuestPlaceholder sets the name used for guests whose records carry no name
func WithGuestPlaceholder(name string) ResolverOption {
	return func(r *NameKeyedResolver) {
		if strings.TrimSpace(name) != "" {
			r.placeholder = strings.TrimSpace(name)
		}
	}
}

// WithGuestKey replaces the guest key normalization
func WithGuestKey(fn GuestKeyFunc) ResolverOption {
	return func(r *NameKeyedResolver) {
		if fn != nil {
			r.guestKey = fn
		}
	}
}

// NewNameKeyedResolver creates a resolver with the default placeholder and key
func NewNameKeyedResolver(opts ...ResolverOption) *NameKeyedResolver {
	r := &NameKeyedResolver{
		placeholder: DefaultGuestPlaceholder,
		guestKey:    NormalizeGuestName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Placeholder returns the name used for anonymous guests
func (r *NameKeyedResolver) Placeholder() string {
	return r.placeholder
}

// Resolve builds the entity set. Every registered customer is included even
// without transactions; guests are included only when they have at least one
// order or payment. Guests are discovered from orders first, then payments, in
// input order, and keep the phone and address of the order that introduced them.
func (r *NameKeyedResolver) Resolve(orders []Order, payments []Payment, customers []Customer) *Resolution {
	res := &Resolution{
		resolver:   r,
		index:      make(map[EntityID]int, len(customers)),
		registered: make(map[string]EntityID, len(customers)),
	}

	for _, c := range customers {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		if _, dup := res.registered[id]; dup {
			continue
		}
		entityID := RegisteredEntityID(id)
		res.registered[id] = entityID
		res.add(BillableEntity{
			ID:         entityID,
			Kind:       EntityKindRegistered,
			Name:       strings.TrimSpace(c.Name),
			Phone:      c.Phone,
			Address:    c.Address,
			CustomerID: id,
		})
	}

	for _, o := range orders {
		if _, ok := res.registeredID(o.CustomerID); ok {
			continue
		}
		name := r.displayName(o.CustomerName)
		id := GuestEntityID(r.guestKey(name))
		if _, seen := res.index[id]; seen {
			continue
		}
		res.add(BillableEntity{
			ID:      id,
			Kind:    EntityKindGuest,
			Name:    name,
			Phone:   o.CustomerPhone,
			Address: o.CustomerAddress,
		})
	}

	for _, p := range payments {
		if _, ok := res.registeredID(p.CustomerID); ok {
			continue
		}
		name := r.displayName(p.CustomerName)
		id := GuestEntityID(r.guestKey(name))
		if _, seen := res.index[id]; seen {
			continue
		}
		res.add(BillableEntity{
			ID:   id,
			Kind: EntityKindGuest,
			Name: name,
		})
	}

	return res
}

func (r *NameKeyedResolver) displayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return r.placeholder
	}
	return name
}

// Resolution is the outcome of entity resolution. Every order and payment maps
// to exactly one entity in Entities.
type Resolution struct {
	Entities []BillableEntity

	resolver   *NameKeyedResolver
	index      map[EntityID]int
	registered map[string]EntityID
}

func (res *Resolution) add(e BillableEntity) {
	res.index[e.ID] = len(res.Entities)
	res.Entities = append(res.Entities, e)
}

func (res *Resolution) registeredID(ref *string) (EntityID, bool) {
	id := customerRef(ref)
	if id == "" {
		return "", false
	}
	entityID, ok := res.registered[id]
	return entityID, ok
}

// EntityIDForOrder returns the entity an order is attributed to
func (res *Resolution) EntityIDForOrder(o Order) EntityID {
	if id, ok := res.registeredID(o.CustomerID); ok {
		return id
	}
	return GuestEntityID(res.resolver.guestKey(res.resolver.displayName(o.CustomerName)))
}

// EntityIDForPayment returns the entity a payment is attributed to
func (res *Resolution) EntityIDForPayment(p Payment) EntityID {
	if id, ok := res.registeredID(p.CustomerID); ok {
		return id
	}
	return GuestEntityID(res.resolver.guestKey(res.resolver.displayName(p.CustomerName)))
}

// Lookup finds an entity by identifier
func (res *Resolution) Lookup(id EntityID) (BillableEntity, bool) {
	i, ok := res.index[id]
	if !ok {
		return BillableEntity{}, false
	}
	return res.Entities[i], true
}

// Partition returns the orders and payments attributed to one entity, in input order
func (res *Resolution) Partition(id EntityID, orders []Order, payments []Payment) ([]Order, []Payment) {
	var ownOrders []Order
	var ownPayments []Payment
	for _, o := range orders {
		if res.EntityIDForOrder(o) == id {
			ownOrders = append(ownOrders, o)
		}
	}
	for _, p := range payments {
		if res.EntityIDForPayment(p) == id {
			ownPayments = append(ownPayments, p)
		}
	}
	return ownOrders, ownPayments
}

// Transactions holds the records attributed to one entity
type Transactions struct {
	Orders   []Order
	Payments []Payment
}

// Group partitions all records by entity in a single pass
func (res *Resolution) Group(orders []Order, payments []Payment) map[EntityID]*Transactions {
	groups := make(map[EntityID]*Transactions, len(res.Entities))
	get := func(id EntityID) *Transactions {
		g, ok := groups[id]
		if !ok {
			g = &Transactions{}
			groups[id] = g
		}
		return g
	}
	for _, o := range orders {
		g := get(res.EntityIDForOrder(o))
		g.Orders = append(g.Orders, o)
	}
	for _, p := range payments {
		g := get(res.EntityIDForPayment(p))
		g.Payments = append(g.Payments, p)
	}
	return groups
}
