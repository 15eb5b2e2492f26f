// internal/app/features/dashboard/data.go
package dashboard

import (
	"context"
	"html/template"
	"sort"

	billingstore "github.com/dalemusser/copilotbilling/internal/app/store/billings"
	"github.com/dalemusser/copilotbilling/internal/app/store/queries/billingreports"
	"github.com/dalemusser/copilotbilling/internal/app/system/htmlsanitize"
	"github.com/dalemusser/copilotbilling/internal/domain/models"
	"github.com/dalemusser/copilotbilling/internal/domain/reporting"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// globalStats are the figures shown on every overview page.
type globalStats struct {
	OrganizationCount int64
	BillingCount      int
	reporting.Summary
}

func (h *Handler) loadGlobalStats(ctx context.Context) (globalStats, error) {
	n, err := h.Orgs.Count(ctx, bson.M{})
	if err != nil {
		return globalStats{}, err
	}
	all, err := h.Billings.All(ctx)
	if err != nil {
		return globalStats{}, err
	}
	return globalStats{OrganizationCount: n, BillingCount: len(all), Summary: reporting.Totals(all)}, nil
}

type indexContent struct {
	Organizations []models.Organization
	Selected      *models.Organization
	Pending       []billingreports.BillingRow
	Stats         globalStats
}

func (h *Handler) loadIndex(ctx context.Context, selectedID string) (indexContent, error) {
	orgs, err := h.Orgs.List(ctx, "")
	if err != nil {
		return indexContent{}, err
	}
	pending, err := billingreports.PendingWithOrganization(ctx, h.DB, pendingPreview)
	if err != nil {
		return indexContent{}, err
	}
	stats, err := h.loadGlobalStats(ctx)
	if err != nil {
		return indexContent{}, err
	}

	out := indexContent{Organizations: orgs, Pending: pending, Stats: stats}
	for i := range orgs {
		if orgs[i].ID.Hex() == selectedID {
			out.Selected = &orgs[i]
			break
		}
	}
	return out, nil
}

// recentBill is a billing record labelled with its organization's name.
type recentBill struct {
	models.Billing
	OrganizationName string
}

type unitCard struct {
	Name              string
	Organizations     []models.Organization
	OrganizationCount int
	Stats             reporting.Summary
	RecentBillings    []recentBill
}

func (h *Handler) loadUnitCards(ctx context.Context) ([]unitCard, error) {
	orgs, err := h.Orgs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	all, err := h.Billings.All(ctx)
	if err != nil {
		return nil, err
	}
	return buildUnitCards(orgs, all), nil
}

// buildUnitCards groups records by their organization's current business
// unit. Records of deleted organizations are not shown.
func buildUnitCards(orgs []models.Organization, records []models.Billing) []unitCard {
	byOrg := map[primitive.ObjectID][]models.Billing{}
	for _, b := range records {
		byOrg[b.OrganizationID] = append(byOrg[b.OrganizationID], b)
	}

	cards := []unitCard{}
	for _, g := range reporting.GroupOrganizationsByUnit(orgs) {
		card := unitCard{Name: g.BusinessUnit}
		var bills []models.Billing
		var recent []recentBill
		for _, o := range orgs {
			if o.BusinessUnit != g.BusinessUnit {
				continue
			}
			card.Organizations = append(card.Organizations, o)
			for _, b := range byOrg[o.ID] {
				bills = append(bills, b)
				recent = append(recent, recentBill{Billing: b, OrganizationName: o.Name})
			}
		}
		card.OrganizationCount = len(card.Organizations)
		card.Stats = reporting.Totals(bills)

		sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
		if len(recent) > recentPerUnit {
			recent = recent[:recentPerUnit]
		}
		card.RecentBillings = recent
		cards = append(cards, card)
	}
	return cards
}

type orgCard struct {
	Organization models.Organization
	Billings     []models.Billing
	Stats        reporting.Summary
}

type unitContent struct {
	Organizations []models.Organization
	Stats         reporting.Summary
	History       []reporting.PeriodStats
	OrgCards      []orgCard
}

// loadUnit returns mongo.ErrNoDocuments when the unit has no organizations.
func (h *Handler) loadUnit(ctx context.Context, unit string) (unitContent, error) {
	data, err := billingreports.LoadUnit(ctx, h.DB, unit)
	if err != nil {
		return unitContent{}, err
	}
	if len(data.Organizations) == 0 {
		return unitContent{}, mongo.ErrNoDocuments
	}

	history := reporting.ByPeriod(data.Billings)
	if len(history) > unitPeriods {
		history = history[:unitPeriods]
	}

	byOrg := map[primitive.ObjectID][]models.Billing{}
	for _, b := range data.Billings {
		byOrg[b.OrganizationID] = append(byOrg[b.OrganizationID], b)
	}
	cards := make([]orgCard, 0, len(data.Organizations))
	for _, o := range data.Organizations {
		bills := byOrg[o.ID]
		latest := append([]models.Billing(nil), bills...)
		billingstore.SortNewestFirst(latest)
		if len(latest) > billsPerOrgCard {
			latest = latest[:billsPerOrgCard]
		}
		cards = append(cards, orgCard{Organization: o, Billings: latest, Stats: reporting.Totals(bills)})
	}

	return unitContent{
		Organizations: data.Organizations,
		Stats:         reporting.Totals(data.Billings),
		History:       history,
		OrgCards:      cards,
	}, nil
}

type orgContent struct {
	Organization models.Organization
	History      []historyRow
	Stats        reporting.Summary
}

// historyRow is one bill on the organization page with its notes ready to
// embed in the page.
type historyRow struct {
	models.Billing
	NotesHTML template.HTML
}

func historyRows(bills []models.Billing) []historyRow {
	rows := make([]historyRow, len(bills))
	for i, b := range bills {
		rows[i] = historyRow{Billing: b, NotesHTML: htmlsanitize.PrepareForDisplay(b.Notes)}
	}
	return rows
}

// loadOrganization returns mongo.ErrNoDocuments for an unknown id.
func (h *Handler) loadOrganization(ctx context.Context, id primitive.ObjectID) (orgContent, error) {
	found, err := h.Orgs.Find(ctx, bson.M{"_id": id})
	if err != nil {
		return orgContent{}, err
	}
	if len(found) == 0 {
		return orgContent{}, mongo.ErrNoDocuments
	}
	history, err := h.Billings.History(ctx, id)
	if err != nil {
		return orgContent{}, err
	}
	return orgContent{Organization: found[0], History: historyRows(history), Stats: reporting.Totals(history)}, nil
}
