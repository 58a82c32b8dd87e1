package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/internal/rules"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/gin-gonic/gin"
)

// maxRuleFileBytes caps an imported rule file.
const maxRuleFileBytes = 1 << 20

type RulesHandler struct {
	rules RulesService
}

func NewRulesHandler(svc RulesService) *RulesHandler {
	return &RulesHandler{rules: svc}
}

// ListRulesHandler godoc
// @Summary List automation rules
// @Tags rules
// @Produce json
// @Success 200 {array} types.AutomationRule
// @Router /rules [get]
func (h *RulesHandler) ListRulesHandler(c *gin.Context) {
	list, err := h.rules.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if list == nil {
		list = []types.AutomationRule{}
	}
	c.JSON(http.StatusOK, list)
}

// CreateRuleHandler godoc
// @Summary Create an automation rule
// @Tags rules
// @Accept json
// @Produce json
// @Param request body types.AutomationRuleInput true "Rule"
// @Success 201 {object} types.AutomationRule
// @Failure 400 {object} types.ErrorResponse "Invalid rule"
// @Router /rules [post]
func (h *RulesHandler) CreateRuleHandler(c *gin.Context) {
	var in types.AutomationRuleInput
	if !bindJSONOrError(c, &in) {
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRuleHandler godoc
// @Summary Update an automation rule
// @Tags rules
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param request body types.AutomationRuleInput true "Rule"
// @Success 200 {object} types.AutomationRule
// @Failure 404 {object} types.ErrorResponse "Rule not found"
// @Router /rules/{id} [put]
func (h *RulesHandler) UpdateRuleHandler(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var in types.AutomationRuleInput
	if !bindJSONOrError(c, &in) {
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), id, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRuleHandler godoc
// @Summary Delete an automation rule
// @Tags rules
// @Param id path int true "Rule ID"
// @Success 204
// @Failure 404 {object} types.ErrorResponse "Rule not found"
// @Router /rules/{id} [delete]
func (h *RulesHandler) DeleteRuleHandler(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HeuristicsHandler godoc
// @Summary List learned heuristics
// @Description Each heuristic carries whether its confidence allows promotion
// @Tags rules
// @Produce json
// @Success 200 {array} types.HeuristicView
// @Router /heuristics [get]
func (h *RulesHandler) HeuristicsHandler(c *gin.Context) {
	list, err := h.rules.Heuristics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if list == nil {
		list = []types.HeuristicView{}
	}
	c.JSON(http.StatusOK, list)
}

// PromoteHeuristicHandler godoc
// @Summary Promote a heuristic to an automation rule
// @Tags rules
// @Produce json
// @Param id path string true "Heuristic ID"
// @Success 201 {object} types.AutomationRule
// @Failure 400 {object} types.ErrorResponse "Confidence below threshold"
// @Router /heuristics/{id}/promote [post]
func (h *RulesHandler) PromoteHeuristicHandler(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		_ = c.Error(apperrors.ValidationFailed("missing heuristic id", ""))
		return
	}
	rule, err := h.rules.Promote(c.Request.Context(), types.HeuristicID(id))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// ExportRulesHandler godoc
// @Summary Download every rule as YAML
// @Tags rules
// @Produce application/yaml
// @Success 200 {file} file "rules.yaml"
// @Router /rules/export [get]
func (h *RulesHandler) ExportRulesHandler(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.rules.Export(c.Request.Context(), &buf); err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rules.yaml"`)
	c.Data(http.StatusOK, "application/yaml", buf.Bytes())
}

// ImportRulesHandler godoc
// @Summary Sync rules from a YAML file
// @Description Creates or updates rules by name; ?prune=true deletes rules absent from the file, ?dry_run=true only reports
// @Tags rules
// @Accept application/yaml
// @Produce json
// @Param dry_run query bool false "Report without writing"
// @Param prune query bool false "Delete rules missing from the file"
// @Success 200 {object} rules.SyncResult
// @Router /rules/import [post]
func (h *RulesHandler) ImportRulesHandler(c *gin.Context) {
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		_ = c.Error(err)
		return
	}
	prune, err := queryBool(c, "prune")
	if err != nil {
		_ = c.Error(err)
		return
	}
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRuleFileBytes)
	result, err := h.rules.Import(c.Request.Context(), body, rules.SyncOptions{DryRun: dryRun, Prune: prune})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.ValidationFailed("invalid "+name, "expected true or false")
	}
	return v, nil
}
