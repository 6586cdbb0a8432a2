package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/engine"
	"github.com/clearstake/ownergraph/backend/internal/repository"
)

// StructureRepository is the storage contract required by the structure service.
type StructureRepository interface {
	UpsertNode(ctx context.Context, node domain.OwnershipNode) error
	UpsertLink(ctx context.Context, link domain.OwnershipLink) error
	DeleteLink(ctx context.Context, clientID, linkID string) error
	UpsertPerson(ctx context.Context, clientID string, person domain.Person) error
	GetStructure(ctx context.Context, clientID string) (domain.Structure, error)
	ListPersons(ctx context.Context, clientID string) ([]domain.Person, error)
	ListNodes(ctx context.Context, opts repository.ListNodesOptions) (repository.NodeListResult, error)
	SaveView(ctx context.Context, view domain.ClientSafeView) error
	GetView(ctx context.Context, viewID string) (domain.ClientSafeView, error)
	SaveUboRun(ctx context.Context, runID, clientID string, records []domain.UboRecord) error
}

// StructureService orchestrates ownership structure persistence and analysis.
// All graph analysis happens in memory on structures loaded from the
// repository; nothing analytical is pushed down to the store.
type StructureService struct {
	repo  StructureRepository
	nowFn func() time.Time

	defaultMinUboPct    float64
	defaultMaxPathDepth int
}

// NewStructureService constructs a StructureService.
func NewStructureService(repo StructureRepository) *StructureService {
	return &StructureService{
		repo:  repo,
		nowFn: time.Now,
	}
}

// WithUboDefaults sets the threshold and traversal depth applied when a
// UBO request leaves them unset. Zero values keep the engine defaults.
func (s *StructureService) WithUboDefaults(minPct float64, maxPathDepth int) {
	s.defaultMinUboPct = minPct
	s.defaultMaxPathDepth = maxPathDepth
}

// WithClock overrides the time provider (used primarily in tests).
func (s *StructureService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// PaginationMeta captures pagination metadata returned to API clients.
type PaginationMeta struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// NodesPage represents paginated nodes with metadata.
type NodesPage struct {
	Items      []domain.OwnershipNode
	Pagination PaginationMeta
}

// StructureGraph is the renderable shape of a client's ownership structure.
type StructureGraph struct {
	ClientID string
	Nodes    []engine.PositionedNode
	Links    []domain.OwnershipLink
	Roots    []string
	Leaves   []string
	Loops    [][]string
	MaxDepth int
}

// UboResult bundles the outcome of a persisted UBO computation run.
type UboResult struct {
	RunID   string
	Records []domain.UboRecord
	Issues  []domain.UboIssue
}

// UpsertNode validates and persists an ownership node.
func (s *StructureService) UpsertNode(ctx context.Context, input NodeInput) error {
	if input.ID == "" {
		return fmt.Errorf("node ID is required")
	}
	if input.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	nodeType := domain.NodeType(normalizeNodeType(input.Type))
	if !nodeType.Valid() {
		return fmt.Errorf("unknown node type %q", input.Type)
	}

	now := s.nowFn().UTC()
	createdAt := now
	updatedAt := now
	if input.CreatedAt != nil {
		createdAt = input.CreatedAt.UTC()
	}
	if input.UpdatedAt != nil {
		updatedAt = input.UpdatedAt.UTC()
	}

	node := domain.OwnershipNode{
		ID:           input.ID,
		ClientID:     input.ClientID,
		Name:         sanitizeString(input.Name),
		Type:         nodeType,
		Jurisdiction: normalizeJurisdiction(input.Jurisdiction),
		Status:       sanitizeString(input.Status),
		Notes:        input.Notes,
		Value:        input.Value,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
	if input.ExternalRef != nil && input.ExternalRef.ID != "" {
		node.ExternalRef = &domain.ExternalRef{
			Type: sanitizeString(input.ExternalRef.Type),
			ID:   input.ExternalRef.ID,
		}
	}

	return s.repo.UpsertNode(ctx, node)
}

// UpsertLink validates and persists an ownership link. Percentages outside
// [0, 100] are rejected.
func (s *StructureService) UpsertLink(ctx context.Context, input LinkInput) error {
	if input.ID == "" {
		return fmt.Errorf("link ID is required")
	}
	if input.FromNodeID == "" || input.ToNodeID == "" {
		return fmt.Errorf("both endpoint node IDs are required")
	}
	if input.FromNodeID == input.ToNodeID {
		return fmt.Errorf("a node cannot own itself")
	}
	if input.OwnershipPct < 0 || input.OwnershipPct > 100 {
		return fmt.Errorf("ownership percentage %.2f is out of range [0, 100]", input.OwnershipPct)
	}
	if input.ProfitSharePct != nil && (*input.ProfitSharePct < 0 || *input.ProfitSharePct > 100) {
		return fmt.Errorf("profit share percentage %.2f is out of range [0, 100]", *input.ProfitSharePct)
	}

	now := s.nowFn().UTC()
	link := domain.OwnershipLink{
		ID:             input.ID,
		ClientID:       input.ClientID,
		FromNodeID:     input.FromNodeID,
		ToNodeID:       input.ToNodeID,
		OwnershipPct:   input.OwnershipPct,
		ProfitSharePct: input.ProfitSharePct,
		EffectiveTo:    input.EffectiveTo,
		SourceRef:      sanitizeString(input.SourceRef),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.EffectiveFrom != nil {
		link.EffectiveFrom = input.EffectiveFrom.UTC()
	} else {
		link.EffectiveFrom = now
	}
	if input.CreatedAt != nil {
		link.CreatedAt = input.CreatedAt.UTC()
	}
	if input.UpdatedAt != nil {
		link.UpdatedAt = input.UpdatedAt.UTC()
	}

	return s.repo.UpsertLink(ctx, link)
}

// DeleteLink removes an ownership link.
func (s *StructureService) DeleteLink(ctx context.Context, clientID, linkID string) error {
	if linkID == "" {
		return fmt.Errorf("link ID is required")
	}
	return s.repo.DeleteLink(ctx, clientID, linkID)
}

// UpsertPerson registers a natural person for a client.
func (s *StructureService) UpsertPerson(ctx context.Context, input PersonInput) error {
	if input.ID == "" {
		return fmt.Errorf("person ID is required")
	}
	return s.repo.UpsertPerson(ctx, input.ClientID, domain.Person{
		ID:         input.ID,
		ExternalID: input.ExternalID,
		Name:       sanitizeString(input.Name),
	})
}

// ListNodes retrieves paginated nodes matching provided filters.
func (s *StructureService) ListNodes(ctx context.Context, params ListNodesParams) (NodesPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	result, err := s.repo.ListNodes(ctx, repository.ListNodesOptions{
		ClientID:     params.ClientID,
		Offset:       offset,
		Limit:        pageSize,
		Type:         params.Type,
		Jurisdiction: params.Jurisdiction,
		Search:       params.Search,
		SortField:    params.SortField,
		SortOrder:    params.SortOrder,
	})
	if err != nil {
		return NodesPage{}, err
	}

	return NodesPage{
		Items:      result.Items,
		Pagination: buildPaginationMeta(page, pageSize, result.Total),
	}, nil
}

// GetStructureGraph loads a client's structure, builds the analysis graph,
// and lays it out for rendering.
func (s *StructureService) GetStructureGraph(ctx context.Context, clientID string) (StructureGraph, error) {
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return StructureGraph{}, err
	}

	return StructureGraph{
		ClientID: clientID,
		Nodes:    engine.CalculateLayout(g, engine.DefaultLayoutConfig()),
		Links:    g.Links,
		Roots:    g.Roots,
		Leaves:   g.Leaves,
		Loops:    g.Loops,
		MaxDepth: g.MaxDepth,
	}, nil
}

// ValidateStructure reports structural problems in a client's graph.
func (s *StructureService) ValidateStructure(ctx context.Context, clientID string) ([]engine.GraphIssue, error) {
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return engine.ValidateGraph(g), nil
}

// AnalyzeConcentrations runs the concentration analysis over a client's graph.
func (s *StructureService) AnalyzeConcentrations(ctx context.Context, clientID string) (domain.ConcentrationReport, error) {
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return domain.ConcentrationReport{}, err
	}
	return engine.AnalyzeConcentrations(g), nil
}

// GetOwnershipPaths enumerates ownership paths between two nodes.
func (s *StructureService) GetOwnershipPaths(ctx context.Context, clientID, fromID, toID string, maxDepth int) ([]engine.PathResult, error) {
	if fromID == "" || toID == "" {
		return nil, fmt.Errorf("from and to node IDs are required")
	}
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return engine.FindPaths(g, fromID, toID, maxDepth), nil
}

// GetDirectOwnership lists the immediate owners of a node.
// ListLinks returns every ownership link recorded for a client.
func (s *StructureService) ListLinks(ctx context.Context, clientID string) ([]domain.OwnershipLink, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	structure, err := s.repo.GetStructure(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return structure.Links, nil
}

// GetSubgraph returns the IDs of nodes and links connected to nodeID in the
// requested directions.
func (s *StructureService) GetSubgraph(ctx context.Context, clientID, nodeID string, ancestors, descendants bool) (engine.SubgraphResult, error) {
	if nodeID == "" {
		return engine.SubgraphResult{}, fmt.Errorf("node ID is required")
	}
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return engine.SubgraphResult{}, err
	}
	return engine.Subgraph(g, nodeID, ancestors, descendants), nil
}

func (s *StructureService) GetDirectOwnership(ctx context.Context, clientID, nodeID string) ([]domain.DirectOwner, error) {
	if nodeID == "" {
		return nil, fmt.Errorf("node ID is required")
	}
	g, err := s.loadGraph(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeDirectOwnership(g, nodeID), nil
}

// ComputeUbo runs a UBO computation for a client, persists the run, and
// returns the records with any validation findings.
func (s *StructureService) ComputeUbo(ctx context.Context, params UboParams) (UboResult, error) {
	if params.ClientID == "" {
		return UboResult{}, fmt.Errorf("client ID is required")
	}

	g, err := s.loadGraph(ctx, params.ClientID)
	if err != nil {
		return UboResult{}, err
	}
	persons, err := s.repo.ListPersons(ctx, params.ClientID)
	if err != nil {
		return UboResult{}, err
	}

	minPct := params.MinPctThreshold
	if minPct <= 0 {
		minPct = s.defaultMinUboPct
	}
	maxDepth := params.MaxPathDepth
	if maxDepth <= 0 {
		maxDepth = s.defaultMaxPathDepth
	}

	records, err := engine.ComputeUbo(g, persons, engine.UboOptions{
		ClientID:        params.ClientID,
		HouseholdNodeID: params.HouseholdNodeID,
		MinPctThreshold: minPct,
		MaxPathDepth:    maxDepth,
	})
	if err != nil {
		return UboResult{}, err
	}

	runID := uuid.NewString()
	if err := s.repo.SaveUboRun(ctx, runID, params.ClientID, records); err != nil {
		return UboResult{}, err
	}

	return UboResult{
		RunID:   runID,
		Records: records,
		Issues:  engine.ValidateUboResults(records),
	}, nil
}

// PublishView produces a client-safe view of a client's structure, persists
// it, and returns it together with any validation findings.
func (s *StructureService) PublishView(ctx context.Context, params PublishParams) (domain.ClientSafeView, []domain.ViewIssue, error) {
	if params.ClientID == "" {
		return domain.ClientSafeView{}, nil, fmt.Errorf("client ID is required")
	}

	g, err := s.loadGraph(ctx, params.ClientID)
	if err != nil {
		return domain.ClientSafeView{}, nil, err
	}

	view, err := engine.NewClientSafeView(g, params.ScopeNodeID, params.PublishedBy, params.ClientID, params.MaskRules)
	if err != nil {
		return domain.ClientSafeView{}, nil, err
	}

	issues := engine.ValidateClientSafeView(view)
	for _, issue := range issues {
		if issue.Severity == domain.ViewIssueError {
			return domain.ClientSafeView{}, issues, fmt.Errorf("view failed validation: %s", issue.Message)
		}
	}

	if err := s.repo.SaveView(ctx, view); err != nil {
		return domain.ClientSafeView{}, nil, err
	}
	return view, issues, nil
}

// GetView loads a previously published view.
func (s *StructureService) GetView(ctx context.Context, viewID string) (domain.ClientSafeView, error) {
	if viewID == "" {
		return domain.ClientSafeView{}, fmt.Errorf("view ID is required")
	}
	return s.repo.GetView(ctx, viewID)
}

// CompareViews diffs two previously published views.
func (s *StructureService) CompareViews(ctx context.Context, oldViewID, newViewID string) (domain.ViewDiff, error) {
	if oldViewID == "" || newViewID == "" {
		return domain.ViewDiff{}, fmt.Errorf("both view IDs are required")
	}

	oldView, err := s.repo.GetView(ctx, oldViewID)
	if err != nil {
		return domain.ViewDiff{}, fmt.Errorf("load view %s: %w", oldViewID, err)
	}
	newView, err := s.repo.GetView(ctx, newViewID)
	if err != nil {
		return domain.ViewDiff{}, fmt.Errorf("load view %s: %w", newViewID, err)
	}

	return engine.CompareViews(oldView, newView), nil
}

func (s *StructureService) loadGraph(ctx context.Context, clientID string) (*engine.OwnershipGraph, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	structure, err := s.repo.GetStructure(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load structure for %s: %w", clientID, err)
	}
	return engine.BuildGraph(structure.Nodes, structure.Links), nil
}

func normalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func buildPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		if total > 0 && totalPages == 0 {
			totalPages = 1
		}
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
