package workbench

import (
	"context"
	"fmt"
	"sort"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// POUpdate is the full replacement line array for one purchase order.
type POUpdate struct {
	POID  int64              `json:"po_id"`
	Lines []types.POLineItem `json:"line_items"`
}

// BuildPOUpdates rebuilds the full line array of every PO with pending edits.
// Overrides are merged into deep copies and line_total is recomputed only on
// edited lines. Keys naming an unknown PO or line are returned as skipped.
func BuildPOUpdates(d *types.ComparisonDossier, buf *EditBuffer) ([]POUpdate, []LineKey) {
	if d == nil || buf == nil || buf.IsEmpty() {
		return nil, nil
	}
	grouped := buf.ByPO()
	poIDs := make([]int64, 0, len(grouped))
	for id := range grouped {
		poIDs = append(poIDs, id)
	}
	sort.Slice(poIDs, func(i, j int) bool { return poIDs[i] < poIDs[j] })

	updates := make([]POUpdate, 0, len(poIDs))
	var skipped []LineKey
	for _, poID := range poIDs {
		header, ok := d.FindPO(poID)
		if !ok {
			for idx := range grouped[poID] {
				skipped = append(skipped, LineKey{POID: poID, Line: idx})
			}
			continue
		}
		lines := make([]types.POLineItem, len(header.LineItems))
		for i, line := range header.LineItems {
			lines[i] = line.Clone()
		}

		touched := false
		for idx, o := range grouped[poID] {
			if idx < 0 || idx >= len(lines) {
				skipped = append(skipped, LineKey{POID: poID, Line: idx})
				continue
			}
			applyOverride(&lines[idx], o)
			touched = true
		}
		if touched {
			updates = append(updates, POUpdate{POID: poID, Lines: lines})
		}
	}
	sortKeys(skipped)
	return updates, skipped
}

func applyOverride(line *types.POLineItem, o EditOverride) {
	if o.OrderedQty != nil {
		v := *o.OrderedQty
		line.OrderedQty = &v
	}
	if o.UnitPrice != nil {
		v := *o.UnitPrice
		line.UnitPrice = &v
	}
	line.LineTotal = lineTotal(line.OrderedQty, line.UnitPrice)
}

func lineTotal(qty, price *float64) *float64 {
	q, p := 0.0, 0.0
	if qty != nil {
		q = *qty
	}
	if price != nil {
		p = *price
	}
	total := decimal.NewFromFloat(q).Mul(decimal.NewFromFloat(p)).Round(4).InexactFloat64()
	return &total
}

// SaveEdits submits one whole-document update per affected purchase order,
// concurrently. Any failure returns the backend message and keeps the
// buffer. On success the buffer is cleared and the dossier refetched.
func (s *Service) SaveEdits(ctx context.Context, sessionID string) (types.Notice, error) {
	release, err := s.acquire(ctx, sessionID, "save")
	if err != nil {
		return types.Notice{}, err
	}
	defer release()

	unlock := s.lock(sessionID)
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		unlock()
		return types.Notice{}, err
	}
	if sess.Dossier == nil {
		unlock()
		return types.Notice{}, apperrors.ValidationFailed("No invoice loaded", "select an invoice before saving")
	}
	if sess.Edits.IsEmpty() {
		unlock()
		return types.Notice{}, apperrors.ValidationFailed("No changes to save", "")
	}

	updates, skipped := BuildPOUpdates(sess.Dossier, &sess.Edits)
	if len(skipped) > 0 || len(updates) == 0 {
		unlock()
		s.log.Warnw("Pending edits do not match the loaded purchase orders", "sessionID", sessionID, "skipped", skipped)
		return types.Notice{}, apperrors.ValidationFailed("Edits no longer match the loaded purchase orders",
			fmt.Sprintf("unmatched lines: %v", skipped))
	}
	if err := s.submit(ctx, updates); err != nil {
		unlock()
		s.log.Warnw("PO update failed, keeping edits", "sessionID", sessionID, "error", err)
		return types.Notice{}, err
	}

	sess.Edits.Discard()
	sess.touch()
	err = s.store.Save(ctx, sess)
	unlock()
	if err != nil {
		return types.Notice{}, err
	}

	s.log.Infow("Saved PO edits", "sessionID", sessionID, "purchaseOrders", len(updates))
	s.refreshAfterMutation(ctx, sessionID)
	return types.SuccessNotice("PO changes saved! Re-matching will run in the background."), nil
}

func (s *Service) submit(ctx context.Context, updates []POUpdate) error {
	// Updates are independent; one failing PO does not cancel the others.
	var g errgroup.Group
	for _, u := range updates {
		u := u
		g.Go(func() error {
			return s.backend.UpdatePurchaseOrder(ctx, u.POID, u.Lines)
		})
	}
	return g.Wait()
}
