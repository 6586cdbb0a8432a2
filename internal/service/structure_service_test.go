package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/repository"
)

// stubRepository implements StructureRepository with overridable behavior.
// Guarded by a mutex because the bulk ingestor hits it from multiple
// goroutines.
type stubRepository struct {
	mu      sync.Mutex
	nodes   map[string]domain.OwnershipNode
	links   map[string]domain.OwnershipLink
	persons []domain.Person
	views   map[string]domain.ClientSafeView

	savedRuns  []string
	upsertErr  error
	structure  domain.Structure
	structErr  error
	deletedIDs []string
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		nodes: make(map[string]domain.OwnershipNode),
		links: make(map[string]domain.OwnershipLink),
		views: make(map[string]domain.ClientSafeView),
	}
}

func (s *stubRepository) UpsertNode(_ context.Context, node domain.OwnershipNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.nodes[node.ID] = node
	return nil
}

func (s *stubRepository) UpsertLink(_ context.Context, link domain.OwnershipLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.links[link.ID] = link
	return nil
}

func (s *stubRepository) DeleteLink(_ context.Context, _, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedIDs = append(s.deletedIDs, linkID)
	return nil
}

func (s *stubRepository) UpsertPerson(_ context.Context, _ string, person domain.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = append(s.persons, person)
	return nil
}

func (s *stubRepository) GetStructure(_ context.Context, _ string) (domain.Structure, error) {
	if s.structErr != nil {
		return domain.Structure{}, s.structErr
	}
	return s.structure, nil
}

func (s *stubRepository) ListPersons(_ context.Context, _ string) ([]domain.Person, error) {
	return s.persons, nil
}

func (s *stubRepository) ListNodes(_ context.Context, opts repository.ListNodesOptions) (repository.NodeListResult, error) {
	var items []domain.OwnershipNode
	for _, n := range s.nodes {
		items = append(items, n)
	}
	return repository.NodeListResult{Items: items, Total: int64(len(items))}, nil
}

func (s *stubRepository) SaveView(_ context.Context, view domain.ClientSafeView) error {
	s.views[view.ID] = view
	return nil
}

func (s *stubRepository) GetView(_ context.Context, viewID string) (domain.ClientSafeView, error) {
	view, ok := s.views[viewID]
	if !ok {
		return domain.ClientSafeView{}, repository.ErrViewNotFound
	}
	return view, nil
}

func (s *stubRepository) SaveUboRun(_ context.Context, runID, _ string, _ []domain.UboRecord) error {
	s.savedRuns = append(s.savedRuns, runID)
	return nil
}

func fixtureStructure() domain.Structure {
	return domain.Structure{
		ClientID: "client-1",
		Nodes: []domain.OwnershipNode{
			{ID: "h1", ClientID: "client-1", Name: "Smith Household", Type: domain.NodeTypeHousehold},
			{ID: "e1", ClientID: "client-1", Name: "Alpine Holdings", Type: domain.NodeTypeEntity},
			{ID: "e2", ClientID: "client-1", Name: "Summit SPV", Type: domain.NodeTypeSPV},
		},
		Links: []domain.OwnershipLink{
			{ID: "l1", ClientID: "client-1", FromNodeID: "h1", ToNodeID: "e1", OwnershipPct: 100},
			{ID: "l2", ClientID: "client-1", FromNodeID: "e1", ToNodeID: "e2", OwnershipPct: 40},
		},
	}
}

func TestStructureService_UpsertNodeValidation(t *testing.T) {
	svc := NewStructureService(newStubRepository())

	if err := svc.UpsertNode(context.Background(), NodeInput{ClientID: "client-1", Type: "entity"}); err == nil {
		t.Fatal("expected error for missing node ID")
	}
	if err := svc.UpsertNode(context.Background(), NodeInput{ID: "n1", Type: "entity"}); err == nil {
		t.Fatal("expected error for missing client ID")
	}
	if err := svc.UpsertNode(context.Background(), NodeInput{ID: "n1", ClientID: "client-1", Type: "conglomerate"}); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestStructureService_UpsertNodeNormalizes(t *testing.T) {
	repo := newStubRepository()
	svc := NewStructureService(repo)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	err := svc.UpsertNode(context.Background(), NodeInput{
		ID:           "n1",
		ClientID:     "client-1",
		Name:         "  Alpine   Holdings  ",
		Type:         " Entity ",
		Jurisdiction: "ch",
		ExternalRef:  &ExternalRefInput{Type: "person", ID: "crm-7"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	node := repo.nodes["n1"]
	if node.Name != "Alpine Holdings" {
		t.Errorf("expected collapsed name, got %q", node.Name)
	}
	if node.Type != domain.NodeTypeEntity {
		t.Errorf("expected entity type, got %s", node.Type)
	}
	if node.Jurisdiction != "CH" {
		t.Errorf("expected CH jurisdiction, got %q", node.Jurisdiction)
	}
	if node.ExternalRef == nil || node.ExternalRef.ID != "crm-7" {
		t.Errorf("expected external ref crm-7, got %+v", node.ExternalRef)
	}
	if !node.CreatedAt.Equal(fixed) || !node.UpdatedAt.Equal(fixed) {
		t.Errorf("expected clock timestamps, got %v / %v", node.CreatedAt, node.UpdatedAt)
	}
}

func TestStructureService_UpsertLinkValidation(t *testing.T) {
	svc := NewStructureService(newStubRepository())
	ctx := context.Background()

	cases := []struct {
		name  string
		input LinkInput
	}{
		{"missing id", LinkInput{FromNodeID: "a", ToNodeID: "b", OwnershipPct: 50}},
		{"missing endpoint", LinkInput{ID: "l1", FromNodeID: "a", OwnershipPct: 50}},
		{"self loop", LinkInput{ID: "l1", FromNodeID: "a", ToNodeID: "a", OwnershipPct: 50}},
		{"negative pct", LinkInput{ID: "l1", FromNodeID: "a", ToNodeID: "b", OwnershipPct: -1}},
		{"pct above 100", LinkInput{ID: "l1", FromNodeID: "a", ToNodeID: "b", OwnershipPct: 100.01}},
	}
	for _, tc := range cases {
		if err := svc.UpsertLink(ctx, tc.input); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	// Boundary values are accepted.
	if err := svc.UpsertLink(ctx, LinkInput{ID: "l1", FromNodeID: "a", ToNodeID: "b", OwnershipPct: 0}); err != nil {
		t.Errorf("pct 0 should be accepted: %v", err)
	}
	if err := svc.UpsertLink(ctx, LinkInput{ID: "l2", FromNodeID: "a", ToNodeID: "b", OwnershipPct: 100}); err != nil {
		t.Errorf("pct 100 should be accepted: %v", err)
	}
}

func TestStructureService_DeleteLink(t *testing.T) {
	repo := newStubRepository()
	svc := NewStructureService(repo)

	if err := svc.DeleteLink(context.Background(), "client-1", "l1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.deletedIDs) != 1 || repo.deletedIDs[0] != "l1" {
		t.Errorf("expected delete of l1, got %v", repo.deletedIDs)
	}

	if err := svc.DeleteLink(context.Background(), "client-1", ""); err == nil {
		t.Error("expected error for missing link ID")
	}
}

func TestStructureService_GetStructureGraph(t *testing.T) {
	repo := newStubRepository()
	repo.structure = fixtureStructure()
	svc := NewStructureService(repo)

	graph, err := svc.GetStructureGraph(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(graph.Nodes) != 3 {
		t.Fatalf("expected 3 positioned nodes, got %d", len(graph.Nodes))
	}
	if len(graph.Roots) != 1 || graph.Roots[0] != "h1" {
		t.Errorf("expected root h1, got %v", graph.Roots)
	}
	if graph.MaxDepth != 2 {
		t.Errorf("expected max depth 2, got %d", graph.MaxDepth)
	}
}

func TestStructureService_GetStructureGraphRepoError(t *testing.T) {
	repo := newStubRepository()
	repo.structErr = errors.New("boom")
	svc := NewStructureService(repo)

	if _, err := svc.GetStructureGraph(context.Background(), "client-1"); err == nil {
		t.Fatal("expected repository error to propagate")
	}
}

func TestStructureService_GetSubgraph(t *testing.T) {
	repo := newStubRepository()
	repo.structure = fixtureStructure()
	svc := NewStructureService(repo)

	result, err := svc.GetSubgraph(context.Background(), "client-1", "e1", false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NodeIDs["e1"] || !result.NodeIDs["e2"] || result.NodeIDs["h1"] {
		t.Fatalf("unexpected node set: %v", result.NodeIDs)
	}
	if !result.LinkIDs["l2"] || result.LinkIDs["l1"] {
		t.Fatalf("unexpected link set: %v", result.LinkIDs)
	}

	if _, err := svc.GetSubgraph(context.Background(), "client-1", "", true, true); err == nil {
		t.Fatal("expected error for missing node ID")
	}
}

func TestStructureService_ComputeUboPersistsRun(t *testing.T) {
	repo := newStubRepository()
	repo.structure = fixtureStructure()
	repo.persons = []domain.Person{{ID: "p1", ExternalID: "crm-7", Name: "Ada Smith"}}
	svc := NewStructureService(repo)

	result, err := svc.ComputeUbo(context.Background(), UboParams{
		ClientID:        "client-1",
		HouseholdNodeID: "h1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.RunID == "" {
		t.Error("expected a run ID")
	}
	if len(repo.savedRuns) != 1 || repo.savedRuns[0] != result.RunID {
		t.Errorf("expected persisted run %s, got %v", result.RunID, repo.savedRuns)
	}

	// h1 -> e1 at 100% qualifies; e2 at 40% qualifies too.
	if len(result.Records) != 2 {
		t.Fatalf("expected 2 UBO records, got %d", len(result.Records))
	}
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %v", result.Issues)
	}
}

func TestStructureService_ComputeUboRequiresClient(t *testing.T) {
	svc := NewStructureService(newStubRepository())
	if _, err := svc.ComputeUbo(context.Background(), UboParams{HouseholdNodeID: "h1"}); err == nil {
		t.Fatal("expected error for missing client ID")
	}
}

func TestStructureService_PublishViewAndCompare(t *testing.T) {
	repo := newStubRepository()
	repo.structure = fixtureStructure()
	svc := NewStructureService(repo)

	first, issues, err := svc.PublishView(context.Background(), PublishParams{
		ClientID:    "client-1",
		ScopeNodeID: "h1",
		PublishedBy: "advisor-1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if !first.MaskRules.HideInternalNotes {
		t.Error("expected HideInternalNotes forced on")
	}
	if _, ok := repo.views[first.ID]; !ok {
		t.Fatal("expected view to be persisted")
	}

	// Publish again with the SPV filtered out and diff the two.
	second, _, err := svc.PublishView(context.Background(), PublishParams{
		ClientID:    "client-1",
		ScopeNodeID: "h1",
		PublishedBy: "advisor-1",
		MaskRules:   domain.MaskRules{ExcludeNodeTypes: []domain.NodeType{domain.NodeTypeSPV}},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	diff, err := svc.CompareViews(context.Background(), first.ID, second.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(diff.NodesRemoved) != 1 || diff.NodesRemoved[0] != "e2" {
		t.Errorf("expected e2 removed, got %v", diff.NodesRemoved)
	}
	if len(diff.LinksRemoved) != 1 || diff.LinksRemoved[0] != "l2" {
		t.Errorf("expected l2 removed, got %v", diff.LinksRemoved)
	}
	if len(diff.NodesAdded) != 0 {
		t.Errorf("expected no nodes added, got %v", diff.NodesAdded)
	}
}

func TestStructureService_CompareViewsMissing(t *testing.T) {
	svc := NewStructureService(newStubRepository())

	if _, err := svc.CompareViews(context.Background(), "a", "b"); !errors.Is(err, repository.ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
}

func TestBulkIngestor_IngestNodes(t *testing.T) {
	repo := newStubRepository()
	svc := NewStructureService(repo)
	ingestor := NewBulkIngestor(svc, 3)

	inputs := make([]NodeInput, 0, 20)
	for i := 0; i < 20; i++ {
		inputs = append(inputs, NodeInput{
			ID:       string(rune('a' + i)),
			ClientID: "client-1",
			Type:     "entity",
		})
	}

	if err := ingestor.IngestNodes(context.Background(), inputs); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repo.nodes) != 20 {
		t.Fatalf("expected 20 nodes ingested, got %d", len(repo.nodes))
	}
}

func TestBulkIngestor_CollectsErrors(t *testing.T) {
	repo := newStubRepository()
	svc := NewStructureService(repo)
	ingestor := NewBulkIngestor(svc, 2)

	inputs := []NodeInput{
		{ID: "a", ClientID: "client-1", Type: "entity"},
		{ID: "", ClientID: "client-1", Type: "entity"},
		{ID: "c", ClientID: "client-1", Type: "not-a-type"},
	}

	err := ingestor.IngestNodes(context.Background(), inputs)
	if err == nil {
		t.Fatal("expected accumulated errors")
	}
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %T", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(taskErr.Errors))
	}
}
