package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/repository"
	"github.com/clearstake/ownergraph/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.StructureService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.StructureService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrUpdateNode(w, r)
	case http.MethodGet:
		h.listNodes(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrUpdateLink(w, r)
	case http.MethodGet:
		h.listLinks(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) listLinks(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	links, err := h.service.ListLinks(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to list links", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list links")
		return
	}

	resp := listLinksResponse{Items: []linkResponse{}}
	for _, link := range links {
		resp.Items = append(resp.Items, toLinkResponse(link))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleLinkByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	linkID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/links/"), "/")
	if linkID == "" {
		writeError(w, http.StatusBadRequest, "link ID is required")
		return
	}

	if err := h.service.DeleteLink(r.Context(), r.URL.Query().Get("clientId"), linkID); err != nil {
		h.logger.Error("failed to delete link", "error", err, "linkId", linkID)
		writeError(w, http.StatusInternalServerError, "failed to delete link")
		return
	}

	respondJSON(w, http.StatusOK, statusResponse{Status: "ok", ID: linkID})
}

func (h *APIHandlers) handlePersons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload personRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.PersonID == "" {
		writeError(w, http.StatusBadRequest, "personId is required")
		return
	}

	input := service.PersonInput{
		ID:         payload.PersonID,
		ClientID:   payload.ClientID,
		ExternalID: payload.ExternalID,
		Name:       payload.Name,
	}
	if err := h.service.UpsertPerson(r.Context(), input); err != nil {
		h.logger.Error("failed to upsert person", "error", err, "personId", input.ID)
		writeError(w, http.StatusInternalServerError, "failed to persist person")
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: input.ID})
}

// handleStructures dispatches /structures/{clientId}/{action} routes.
func (h *APIHandlers) handleStructures(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/structures/"), "/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	clientID, action := parts[0], parts[1]

	switch action {
	case "graph":
		h.getStructureGraph(w, r, clientID)
	case "validation":
		h.getStructureValidation(w, r, clientID)
	case "concentrations":
		h.getConcentrations(w, r, clientID)
	case "paths":
		h.getOwnershipPaths(w, r, clientID)
	case "subgraph":
		h.getSubgraph(w, r, clientID)
	case "owners":
		h.getDirectOwnership(w, r, clientID)
	case "ubo":
		h.computeUbo(w, r, clientID)
	case "views":
		h.publishView(w, r, clientID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandlers) handleViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/views/"), "/")
	if rest == "compare" {
		h.compareViews(w, r)
		return
	}
	if rest == "" {
		writeError(w, http.StatusBadRequest, "view ID is required")
		return
	}

	view, err := h.service.GetView(r.Context(), rest)
	if err != nil {
		if errors.Is(err, repository.ErrViewNotFound) {
			writeError(w, http.StatusNotFound, "view not found")
			return
		}
		h.logger.Error("failed to load view", "error", err, "viewId", rest)
		writeError(w, http.StatusInternalServerError, "failed to load view")
		return
	}

	respondJSON(w, http.StatusOK, toViewResponse(view))
}

func (h *APIHandlers) createOrUpdateNode(w http.ResponseWriter, r *http.Request) {
	var payload nodeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}
	if payload.ClientID == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	input, err := payload.toServiceInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpsertNode(r.Context(), input); err != nil {
		h.logger.Error("failed to upsert node", "error", err, "nodeId", input.ID)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: input.ID})
}

func (h *APIHandlers) listNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	clientID := query.Get("clientId")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "clientId is required")
		return
	}

	result, err := h.service.ListNodes(r.Context(), service.ListNodesParams{
		ClientID:     clientID,
		Page:         parseInt(query.Get("page"), 1),
		PageSize:     parseInt(query.Get("pageSize"), 50),
		Type:         query.Get("type"),
		Jurisdiction: query.Get("jurisdiction"),
		Search:       query.Get("search"),
		SortField:    query.Get("sortField"),
		SortOrder:    query.Get("sortOrder"),
	})
	if err != nil {
		h.logger.Error("failed to list nodes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}

	resp := listNodesResponse{
		Pagination: paginationResponse{
			Page:       result.Pagination.Page,
			PageSize:   result.Pagination.PageSize,
			TotalItems: result.Pagination.TotalItems,
			TotalPages: result.Pagination.TotalPages,
		},
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, toNodeResponse(item))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createOrUpdateLink(w http.ResponseWriter, r *http.Request) {
	var payload linkRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.LinkID == "" {
		writeError(w, http.StatusBadRequest, "linkId is required")
		return
	}
	if payload.FromNodeID == "" || payload.ToNodeID == "" {
		writeError(w, http.StatusBadRequest, "fromNodeId and toNodeId are required")
		return
	}

	input, err := payload.toServiceInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpsertLink(r.Context(), input); err != nil {
		h.logger.Error("failed to upsert link", "error", err, "linkId", input.ID)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: input.ID})
}

func (h *APIHandlers) getStructureGraph(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	graph, err := h.service.GetStructureGraph(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to build structure graph", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to build structure graph")
		return
	}

	resp := structureGraphResponse{
		ClientID: graph.ClientID,
		Roots:    graph.Roots,
		Leaves:   graph.Leaves,
		Loops:    graph.Loops,
		MaxDepth: graph.MaxDepth,
	}
	for _, node := range graph.Nodes {
		resp.Nodes = append(resp.Nodes, positionedNodeResponse{
			NodeID: node.ID,
			Name:   node.Name,
			Type:   string(node.Type),
			X:      node.X,
			Y:      node.Y,
			Level:  node.Level,
		})
	}
	for _, link := range graph.Links {
		resp.Links = append(resp.Links, toLinkResponse(link))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getStructureValidation(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	issues, err := h.service.ValidateStructure(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to validate structure", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to validate structure")
		return
	}

	resp := validationResponse{ClientID: clientID, Issues: []graphIssueResponse{}}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, graphIssueResponse{
			Type:    issue.Type,
			Message: issue.Message,
			NodeIDs: issue.NodeIDs,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getConcentrations(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	report, err := h.service.AnalyzeConcentrations(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to analyze concentrations", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to analyze concentrations")
		return
	}

	resp := concentrationResponse{
		ClientID: clientID,
		Summary: concentrationSummaryResponse{
			NodeCount: report.Summary.NodeCount,
			LinkCount: report.Summary.LinkCount,
			LoopCount: report.Summary.LoopCount,
			MaxDepth:  report.Summary.MaxDepth,
			AvgDepth:  report.Summary.AvgDepth,
			RiskScore: report.Summary.RiskScore,
		},
		Warnings: report.Warnings,
	}
	for _, m := range report.Metrics {
		resp.Metrics = append(resp.Metrics, concentrationMetricResponse{
			Type:        string(m.Type),
			TargetID:    m.TargetID,
			Value:       m.Value,
			RiskLevel:   string(m.RiskLevel),
			Description: m.Description,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getOwnershipPaths(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	fromID := query.Get("from")
	toID := query.Get("to")
	if fromID == "" || toID == "" {
		writeError(w, http.StatusBadRequest, "from and to node IDs are required")
		return
	}

	paths, err := h.service.GetOwnershipPaths(r.Context(), clientID, fromID, toID, parseInt(query.Get("maxDepth"), 0))
	if err != nil {
		h.logger.Error("failed to find ownership paths", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to find ownership paths")
		return
	}

	resp := pathsResponse{From: fromID, To: toID, Paths: []pathResponse{}}
	for _, p := range paths {
		resp.Paths = append(resp.Paths, pathResponse{
			NodeIDs:      p.NodeIDs,
			LinkIDs:      p.LinkIDs,
			OwnershipPct: p.Pct,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getSubgraph(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	nodeID := query.Get("nodeId")
	if nodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	// Both directions are included unless the caller narrows the traversal.
	ancestors := query.Get("ancestors") != "false"
	descendants := query.Get("descendants") != "false"

	result, err := h.service.GetSubgraph(r.Context(), clientID, nodeID, ancestors, descendants)
	if err != nil {
		h.logger.Error("failed to compute subgraph", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to compute subgraph")
		return
	}

	respondJSON(w, http.StatusOK, subgraphResponse{
		NodeID:  nodeID,
		NodeIDs: sortedKeys(result.NodeIDs),
		LinkIDs: sortedKeys(result.LinkIDs),
	})
}

func (h *APIHandlers) getDirectOwnership(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	nodeID := r.URL.Query().Get("nodeId")
	if nodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	owners, err := h.service.GetDirectOwnership(r.Context(), clientID, nodeID)
	if err != nil {
		h.logger.Error("failed to fetch direct ownership", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to fetch direct ownership")
		return
	}

	resp := directOwnersResponse{NodeID: nodeID, Owners: []directOwnerResponse{}}
	for _, owner := range owners {
		resp.Owners = append(resp.Owners, directOwnerResponse{
			NodeID:       owner.NodeID,
			Name:         owner.Name,
			LinkID:       owner.LinkID,
			OwnershipPct: owner.OwnershipPct,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) computeUbo(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload uboRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.HouseholdNodeID == "" {
		writeError(w, http.StatusBadRequest, "householdNodeId is required")
		return
	}

	result, err := h.service.ComputeUbo(r.Context(), service.UboParams{
		ClientID:        clientID,
		HouseholdNodeID: payload.HouseholdNodeID,
		MinPctThreshold: payload.MinPctThreshold,
		MaxPathDepth:    payload.MaxPathDepth,
	})
	if err != nil {
		h.logger.Error("failed to compute UBO", "error", err, "clientId", clientID)
		writeError(w, http.StatusInternalServerError, "failed to compute UBO")
		return
	}

	resp := uboResponse{
		RunID:   result.RunID,
		Records: []uboRecordResponse{},
		Issues:  []uboIssueResponse{},
	}
	for _, record := range result.Records {
		rec := uboRecordResponse{
			PersonRef:           record.PersonRef,
			PersonName:          record.PersonName,
			RootHouseholdNodeID: record.RootHouseholdNodeID,
			TargetNodeID:        record.TargetNodeID,
			ComputedPct:         record.ComputedPct,
			SourceLinkIDs:       record.SourceLinkIDs,
			ComputedAt:          formatTime(record.ComputedAt),
		}
		for _, path := range record.Paths {
			rec.Paths = append(rec.Paths, uboPathResponse{
				NodeIDs:      path.NodeIDs,
				OwnershipPct: path.Pct,
			})
		}
		resp.Records = append(resp.Records, rec)
	}
	for _, issue := range result.Issues {
		resp.Issues = append(resp.Issues, uboIssueResponse{
			Type:         issue.Type,
			TargetNodeID: issue.TargetNodeID,
			TotalPct:     issue.TotalPct,
			Message:      issue.Message,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) publishView(w http.ResponseWriter, r *http.Request, clientID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload publishViewRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.ScopeNodeID == "" {
		writeError(w, http.StatusBadRequest, "scopeNodeId is required")
		return
	}
	if payload.PublishedBy == "" {
		writeError(w, http.StatusBadRequest, "publishedBy is required")
		return
	}

	rules := domain.MaskRules{
		MaskAccountNumbers:   payload.MaskRules.MaskAccountNumbers,
		MaskAssetValues:      payload.MaskRules.MaskAssetValues,
		ExcludeJurisdictions: payload.MaskRules.ExcludeJurisdictions,
		SimplifyPercentages:  payload.MaskRules.SimplifyPercentages,
		HideInternalNotes:    payload.MaskRules.HideInternalNotes,
	}
	for _, t := range payload.MaskRules.ExcludeNodeTypes {
		rules.ExcludeNodeTypes = append(rules.ExcludeNodeTypes, domain.NodeType(t))
	}

	view, issues, err := h.service.PublishView(r.Context(), service.PublishParams{
		ClientID:    clientID,
		ScopeNodeID: payload.ScopeNodeID,
		PublishedBy: payload.PublishedBy,
		MaskRules:   rules,
	})
	if err != nil {
		h.logger.Error("failed to publish view", "error", err, "clientId", clientID)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := publishViewResponse{View: toViewResponse(view), Issues: []viewIssueResponse{}}
	for _, issue := range issues {
		resp.Issues = append(resp.Issues, viewIssueResponse{
			Severity: issue.Severity,
			Message:  issue.Message,
			NodeID:   issue.NodeID,
		})
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (h *APIHandlers) compareViews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	oldID := query.Get("old")
	newID := query.Get("new")
	if oldID == "" || newID == "" {
		writeError(w, http.StatusBadRequest, "old and new view IDs are required")
		return
	}

	diff, err := h.service.CompareViews(r.Context(), oldID, newID)
	if err != nil {
		if errors.Is(err, repository.ErrViewNotFound) {
			writeError(w, http.StatusNotFound, "view not found")
			return
		}
		h.logger.Error("failed to compare views", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compare views")
		return
	}

	respondJSON(w, http.StatusOK, viewDiffResponse{
		NodesAdded:   emptyIfNil(diff.NodesAdded),
		NodesRemoved: emptyIfNil(diff.NodesRemoved),
		LinksAdded:   emptyIfNil(diff.LinksAdded),
		LinksRemoved: emptyIfNil(diff.LinksRemoved),
	})
}

// --- Request & Response DTOs ---

type nodeRequest struct {
	NodeID       string              `json:"nodeId"`
	ClientID     string              `json:"clientId"`
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	Jurisdiction string              `json:"jurisdiction"`
	ExternalRef  *externalRefRequest `json:"externalRef"`
	Status       string              `json:"status"`
	Notes        string              `json:"notes"`
	Value        *float64            `json:"value"`
	CreatedAt    string              `json:"createdAt"`
	UpdatedAt    string              `json:"updatedAt"`
}

type externalRefRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type linkRequest struct {
	LinkID         string   `json:"linkId"`
	ClientID       string   `json:"clientId"`
	FromNodeID     string   `json:"fromNodeId"`
	ToNodeID       string   `json:"toNodeId"`
	OwnershipPct   float64  `json:"ownershipPct"`
	ProfitSharePct *float64 `json:"profitSharePct"`
	EffectiveFrom  string   `json:"effectiveFrom"`
	EffectiveTo    string   `json:"effectiveTo"`
	SourceRef      string   `json:"sourceRef"`
}

type personRequest struct {
	PersonID   string `json:"personId"`
	ClientID   string `json:"clientId"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
}

type uboRequest struct {
	HouseholdNodeID string  `json:"householdNodeId"`
	MinPctThreshold float64 `json:"minPctThreshold"`
	MaxPathDepth    int     `json:"maxPathDepth"`
}

type maskRulesRequest struct {
	MaskAccountNumbers   bool     `json:"maskAccountNumbers"`
	MaskAssetValues      bool     `json:"maskAssetValues"`
	ExcludeNodeTypes     []string `json:"excludeNodeTypes"`
	ExcludeJurisdictions []string `json:"excludeJurisdictions"`
	SimplifyPercentages  bool     `json:"simplifyPercentages"`
	HideInternalNotes    bool     `json:"hideInternalNotes"`
}

type publishViewRequest struct {
	ScopeNodeID string           `json:"scopeNodeId"`
	PublishedBy string           `json:"publishedBy"`
	MaskRules   maskRulesRequest `json:"maskRules"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type nodeResponse struct {
	NodeID       string   `json:"nodeId"`
	ClientID     string   `json:"clientId"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Jurisdiction string   `json:"jurisdiction"`
	Status       string   `json:"status"`
	Value        *float64 `json:"value,omitempty"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
}

type listNodesResponse struct {
	Items      []nodeResponse     `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type listLinksResponse struct {
	Items []linkResponse `json:"items"`
}

type linkResponse struct {
	LinkID         string   `json:"linkId"`
	FromNodeID     string   `json:"fromNodeId"`
	ToNodeID       string   `json:"toNodeId"`
	OwnershipPct   float64  `json:"ownershipPct"`
	ProfitSharePct *float64 `json:"profitSharePct,omitempty"`
	SourceRef      string   `json:"sourceRef,omitempty"`
}

type positionedNodeResponse struct {
	NodeID string  `json:"nodeId"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Level  int     `json:"level"`
}

type structureGraphResponse struct {
	ClientID string                   `json:"clientId"`
	Nodes    []positionedNodeResponse `json:"nodes"`
	Links    []linkResponse           `json:"links"`
	Roots    []string                 `json:"roots"`
	Leaves   []string                 `json:"leaves"`
	Loops    [][]string               `json:"loops"`
	MaxDepth int                      `json:"maxDepth"`
}

type graphIssueResponse struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	NodeIDs []string `json:"nodeIds"`
}

type validationResponse struct {
	ClientID string               `json:"clientId"`
	Issues   []graphIssueResponse `json:"issues"`
}

type concentrationMetricResponse struct {
	Type        string  `json:"type"`
	TargetID    string  `json:"targetId"`
	Value       float64 `json:"value"`
	RiskLevel   string  `json:"riskLevel"`
	Description string  `json:"description"`
}

type concentrationSummaryResponse struct {
	NodeCount int     `json:"nodeCount"`
	LinkCount int     `json:"linkCount"`
	LoopCount int     `json:"loopCount"`
	MaxDepth  int     `json:"maxDepth"`
	AvgDepth  float64 `json:"avgDepth"`
	RiskScore int     `json:"riskScore"`
}

type concentrationResponse struct {
	ClientID string                        `json:"clientId"`
	Metrics  []concentrationMetricResponse `json:"metrics"`
	Summary  concentrationSummaryResponse  `json:"summary"`
	Warnings []string                      `json:"warnings"`
}

type pathResponse struct {
	NodeIDs      []string `json:"nodeIds"`
	LinkIDs      []string `json:"linkIds"`
	OwnershipPct float64  `json:"ownershipPct"`
}

type pathsResponse struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Paths []pathResponse `json:"paths"`
}

type subgraphResponse struct {
	NodeID  string   `json:"nodeId"`
	NodeIDs []string `json:"nodeIds"`
	LinkIDs []string `json:"linkIds"`
}

type directOwnerResponse struct {
	NodeID       string  `json:"nodeId"`
	Name         string  `json:"name"`
	LinkID       string  `json:"linkId"`
	OwnershipPct float64 `json:"ownershipPct"`
}

type directOwnersResponse struct {
	NodeID string                `json:"nodeId"`
	Owners []directOwnerResponse `json:"owners"`
}

type uboPathResponse struct {
	NodeIDs      []string `json:"nodeIds"`
	OwnershipPct float64  `json:"ownershipPct"`
}

type uboRecordResponse struct {
	PersonRef           string            `json:"personRef"`
	PersonName          string            `json:"personName"`
	RootHouseholdNodeID string            `json:"rootHouseholdNodeId"`
	TargetNodeID        string            `json:"targetNodeId"`
	ComputedPct         float64           `json:"computedPct"`
	Paths               []uboPathResponse `json:"paths"`
	SourceLinkIDs       []string          `json:"sourceLinkIds"`
	ComputedAt          string            `json:"computedAt"`
}

type uboIssueResponse struct {
	Type         string  `json:"type"`
	TargetNodeID string  `json:"targetNodeId"`
	TotalPct     float64 `json:"totalPct"`
	Message      string  `json:"message"`
}

type uboResponse struct {
	RunID   string              `json:"runId"`
	Records []uboRecordResponse `json:"records"`
	Issues  []uboIssueResponse  `json:"issues"`
}

type viewNodeResponse struct {
	NodeID       string   `json:"nodeId"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	TypeLabel    string   `json:"typeLabel"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Value        *float64 `json:"value,omitempty"`
}

type viewResponse struct {
	ViewID      string             `json:"viewId"`
	ClientID    string             `json:"clientId"`
	ScopeNodeID string             `json:"scopeNodeId"`
	Nodes       []viewNodeResponse `json:"nodes"`
	Links       []linkResponse     `json:"links"`
	PublishedAt string             `json:"publishedAt"`
	PublishedBy string             `json:"publishedBy"`
}

type viewIssueResponse struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	NodeID   string `json:"nodeId,omitempty"`
}

type publishViewResponse struct {
	View   viewResponse        `json:"view"`
	Issues []viewIssueResponse `json:"issues"`
}

type viewDiffResponse struct {
	NodesAdded   []string `json:"nodesAdded"`
	NodesRemoved []string `json:"nodesRemoved"`
	LinksAdded   []string `json:"linksAdded"`
	LinksRemoved []string `json:"linksRemoved"`
}

// --- Helpers ---

func (req nodeRequest) toServiceInput() (service.NodeInput, error) {
	input := service.NodeInput{
		ID:           req.NodeID,
		ClientID:     req.ClientID,
		Name:         req.Name,
		Type:         req.Type,
		Jurisdiction: req.Jurisdiction,
		Status:       req.Status,
		Notes:        req.Notes,
		Value:        req.Value,
	}
	if req.ExternalRef != nil {
		input.ExternalRef = &service.ExternalRefInput{
			Type: req.ExternalRef.Type,
			ID:   req.ExternalRef.ID,
		}
	}

	if req.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return service.NodeInput{}, errors.New("invalid createdAt")
		}
		input.CreatedAt = &ts
	}
	if req.UpdatedAt != "" {
		ts, err := time.Parse(time.RFC3339, req.UpdatedAt)
		if err != nil {
			return service.NodeInput{}, errors.New("invalid updatedAt")
		}
		input.UpdatedAt = &ts
	}

	return input, nil
}

func (req linkRequest) toServiceInput() (service.LinkInput, error) {
	input := service.LinkInput{
		ID:             req.LinkID,
		ClientID:       req.ClientID,
		FromNodeID:     req.FromNodeID,
		ToNodeID:       req.ToNodeID,
		OwnershipPct:   req.OwnershipPct,
		ProfitSharePct: req.ProfitSharePct,
		SourceRef:      req.SourceRef,
	}

	if req.EffectiveFrom != "" {
		ts, err := time.Parse(time.RFC3339, req.EffectiveFrom)
		if err != nil {
			return service.LinkInput{}, errors.New("invalid effectiveFrom")
		}
		input.EffectiveFrom = &ts
	}
	if req.EffectiveTo != "" {
		ts, err := time.Parse(time.RFC3339, req.EffectiveTo)
		if err != nil {
			return service.LinkInput{}, errors.New("invalid effectiveTo")
		}
		input.EffectiveTo = &ts
	}

	return input, nil
}

func toNodeResponse(node domain.OwnershipNode) nodeResponse {
	return nodeResponse{
		NodeID:       node.ID,
		ClientID:     node.ClientID,
		Name:         node.Name,
		Type:         string(node.Type),
		Jurisdiction: node.Jurisdiction,
		Status:       node.Status,
		Value:        node.Value,
		CreatedAt:    formatTime(node.CreatedAt),
		UpdatedAt:    formatTime(node.UpdatedAt),
	}
}

func toLinkResponse(link domain.OwnershipLink) linkResponse {
	return linkResponse{
		LinkID:         link.ID,
		FromNodeID:     link.FromNodeID,
		ToNodeID:       link.ToNodeID,
		OwnershipPct:   link.OwnershipPct,
		ProfitSharePct: link.ProfitSharePct,
		SourceRef:      link.SourceRef,
	}
}

func toViewResponse(view domain.ClientSafeView) viewResponse {
	resp := viewResponse{
		ViewID:      view.ID,
		ClientID:    view.ClientID,
		ScopeNodeID: view.ScopeNodeID,
		Nodes:       []viewNodeResponse{},
		Links:       []linkResponse{},
		PublishedAt: formatTime(view.PublishedAt),
		PublishedBy: view.PublishedBy,
	}
	for _, node := range view.Nodes {
		resp.Nodes = append(resp.Nodes, viewNodeResponse{
			NodeID:       node.ID,
			Name:         node.Name,
			Type:         string(node.Type),
			TypeLabel:    node.TypeLabel,
			Jurisdiction: node.Jurisdiction,
			Value:        node.Value,
		})
	}
	for _, link := range view.Links {
		resp.Links = append(resp.Links, linkResponse{
			LinkID:         link.ID,
			FromNodeID:     link.FromNodeID,
			ToNodeID:       link.ToNodeID,
			OwnershipPct:   link.OwnershipPct,
			ProfitSharePct: link.ProfitSharePct,
		})
	}
	return resp
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
