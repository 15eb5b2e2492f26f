// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/copilotbilling/internal/app/store/audit"
	"github.com/dalemusser/copilotbilling/internal/app/system/timeouts"
	"github.com/dalemusser/copilotbilling/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const pageSize = 50

// listParams holds the parsed filter form.
type listParams struct {
	Category  string
	EventType string
	StartDate string
	EndDate   string
	Page      int
}

func parseParams(r *http.Request) listParams {
	p := listParams{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		StartDate: query.Get(r, "start_date"),
		EndDate:   query.Get(r, "end_date"),
		Page:      1,
	}
	if n, err := strconv.Atoi(query.Get(r, "page")); err == nil && n > 0 {
		p.Page = n
	}
	return p
}

func (p listParams) filter() audit.QueryFilter {
	f := audit.QueryFilter{
		Category:  p.Category,
		EventType: p.EventType,
		Limit:     pageSize,
		Offset:    int64((p.Page - 1) * pageSize),
	}
	if t, err := time.Parse("2006-01-02", p.StartDate); err == nil {
		f.StartTime = &t
	}
	if t, err := time.Parse("2006-01-02", p.EndDate); err == nil {
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}
	return f
}

// ServeList handles GET /audit: a filterable, paginated list of audit events.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	p := parseParams(r)
	data := listData{
		BaseVM:     viewdata.NewBaseVM(w, r, h.SessionMgr, "Audit log", "/dashboard"),
		Categories: allCategories(),
		EventTypes: eventTypesForCategory(p.Category),
	}

	content, err := h.loadList(ctx, p)
	if err != nil {
		h.Log.Error("audit log query failed", zap.Error(err))
		http.Error(w, "A database error occurred.", http.StatusInternalServerError)
		return
	}
	data.listContent = content

	templates.Render(w, r, "audit_list", data)
}

func (h *Handler) loadList(ctx context.Context, p listParams) (listContent, error) {
	f := p.filter()
	events, err := h.Events.Query(ctx, f)
	if err != nil {
		return listContent{}, err
	}
	total, err := h.Events.CountByFilter(ctx, f)
	if err != nil {
		return listContent{}, err
	}

	actors, orgs := h.resolveNames(ctx, events)

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		item := listItem{
			ID:        e.ID.Hex(),
			Timestamp: e.Timestamp,
			Category:  e.Category,
			EventType: e.EventType,
			IP:        e.IP,
			Success:   e.Success,
			Reason:    e.FailureReason,
			Details:   e.Details,
		}
		if e.ActorID != nil {
			item.ActorName = nameOr(actors, *e.ActorID)
		}
		if e.OrganizationID != nil {
			item.OrgName = nameOr(orgs, *e.OrganizationID)
		}
		items = append(items, item)
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}
	return listContent{
		Items:      items,
		Category:   p.Category,
		EventType:  p.EventType,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Page:       p.Page,
		TotalPages: totalPages,
		Total:      total,
		HasPrev:    p.Page > 1,
		HasNext:    p.Page < totalPages,
		PrevPage:   max(p.Page-1, 1),
		NextPage:   min(p.Page+1, totalPages),
	}, nil
}

// resolveNames batch-loads the users and organizations referenced by events.
// Lookup failures are logged and leave the raw ids in place.
func (h *Handler) resolveNames(ctx context.Context, events []audit.Event) (actors, orgs map[primitive.ObjectID]string) {
	actorIDs := map[primitive.ObjectID]struct{}{}
	orgIDs := map[primitive.ObjectID]struct{}{}
	for _, e := range events {
		if e.ActorID != nil {
			actorIDs[*e.ActorID] = struct{}{}
		}
		if e.OrganizationID != nil {
			orgIDs[*e.OrganizationID] = struct{}{}
		}
	}

	actors = make(map[primitive.ObjectID]string, len(actorIDs))
	if users, err := h.Users.GetByIDs(ctx, keys(actorIDs)); err != nil {
		h.Log.Warn("resolve audit actors failed", zap.Error(err))
	} else {
		for _, u := range users {
			actors[u.ID] = u.Name
		}
	}

	orgs = make(map[primitive.ObjectID]string, len(orgIDs))
	if list, err := h.Orgs.GetByIDs(ctx, keys(orgIDs)); err != nil {
		h.Log.Warn("resolve audit organizations failed", zap.Error(err))
	} else {
		for _, o := range list {
			orgs[o.ID] = o.Name
		}
	}
	return actors, orgs
}

func keys(m map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func nameOr(names map[primitive.ObjectID]string, id primitive.ObjectID) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id.Hex()
}
