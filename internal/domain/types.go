package domain

import "context"

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

// NewPagination clamps page/size and fills the derived page count once total is known.
func NewPagination(page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return Pagination{Page: page, PageSize: size}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

func (p Pagination) WithTotal(total int) Pagination {
	p.Total = total
	if p.PageSize > 0 {
		p.Pages = (total + p.PageSize - 1) / p.PageSize
	}
	return p
}

// RequestContext carries the authenticated actor for one request.
type RequestContext struct {
	UserID    int64  `json:"userId"`
	Role      string `json:"role"`
	ClientID  int64  `json:"clientId,omitempty"`
	RequestID string `json:"-"`
}

func (rc RequestContext) IsAdmin() bool { return rc.Role == RoleAdmin }

type (
	actorKey     struct{}
	requestIDKey struct{}
)

// WithActor stores the actor on ctx so services never depend on ambient state.
func WithActor(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, actorKey{}, rc)
}

// ActorFrom returns the actor stored by WithActor, if any.
func ActorFrom(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(actorKey{}).(RequestContext)
	return rc, ok
}

// WithRequestID tags ctx with the request id used in log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID, falling back to the actor's.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	if rc, ok := ActorFrom(ctx); ok {
		return rc.RequestID
	}
	return ""
}
