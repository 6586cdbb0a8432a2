package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clearstake/ownergraph/backend/internal/domain"
	"github.com/clearstake/ownergraph/backend/internal/graph"
)

// ListNodesOptions defines filters and pagination for node listing.
type ListNodesOptions struct {
	ClientID     string
	Offset       int
	Limit        int
	Type         string
	Jurisdiction string
	Search       string
	SortField    string
	SortOrder    string
}

// NodeListResult is one page of nodes plus the unpaginated total.
type NodeListResult struct {
	Items []domain.OwnershipNode
	Total int64
}

// Repository encapsulates graph persistence operations for ownership
// structures, persons, published views, and UBO runs.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// UpsertNode ensures an ownership node exists with the latest properties.
func (r *Repository) UpsertNode(ctx context.Context, node domain.OwnershipNode) error {
	if node.ID == "" {
		return errors.New("node id is required")
	}
	if node.ClientID == "" {
		return errors.New("client id is required")
	}

	params := map[string]any{
		"nodeId":   node.ID,
		"clientId": node.ClientID,
		"props":    nodeProperties(node),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertNodeCypher, params); err != nil {
		return fmt.Errorf("upsert node %s: %w", node.ID, err)
	}
	return nil
}

// UpsertLink ensures an ownership edge exists between two nodes. Both
// endpoints must already be present.
func (r *Repository) UpsertLink(ctx context.Context, link domain.OwnershipLink) error {
	if link.ID == "" {
		return errors.New("link id is required")
	}
	if link.FromNodeID == "" || link.ToNodeID == "" {
		return errors.New("both endpoint node IDs are required")
	}

	params := map[string]any{
		"linkId":   link.ID,
		"clientId": link.ClientID,
		"fromId":   link.FromNodeID,
		"toId":     link.ToNodeID,
		"props":    linkProperties(link),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertLinkCypher, params); err != nil {
		return fmt.Errorf("upsert link %s: %w", link.ID, err)
	}
	return nil
}

// DeleteLink removes an ownership edge. Deleting a link that does not exist
// is not an error.
func (r *Repository) DeleteLink(ctx context.Context, clientID, linkID string) error {
	if linkID == "" {
		return errors.New("link id is required")
	}

	params := map[string]any{
		"clientId": clientID,
		"linkId":   linkID,
	}
	if _, err := r.client.ExecuteWrite(ctx, deleteLinkCypher, params); err != nil {
		return fmt.Errorf("delete link %s: %w", linkID, err)
	}
	return nil
}

// UpsertPerson records a natural person used by UBO computation.
func (r *Repository) UpsertPerson(ctx context.Context, clientID string, person domain.Person) error {
	if person.ID == "" {
		return errors.New("person id is required")
	}

	params := map[string]any{
		"personId":   person.ID,
		"clientId":   clientID,
		"externalId": person.ExternalID,
		"name":       person.Name,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertPersonCypher, params); err != nil {
		return fmt.Errorf("upsert person %s: %w", person.ID, err)
	}
	return nil
}

// GetStructure loads every node and link recorded for a client.
func (r *Repository) GetStructure(ctx context.Context, clientID string) (domain.Structure, error) {
	if clientID == "" {
		return domain.Structure{}, errors.New("client id is required")
	}

	structure := domain.Structure{ClientID: clientID}
	params := map[string]any{"clientId": clientID}

	nodesRes, err := r.client.ExecuteRead(ctx, structureNodesCypher, params)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("load structure nodes: %w", err)
	}
	for _, record := range nodesRes.Records {
		structure.Nodes = append(structure.Nodes, recordToNode(record))
	}

	linksRes, err := r.client.ExecuteRead(ctx, structureLinksCypher, params)
	if err != nil {
		return domain.Structure{}, fmt.Errorf("load structure links: %w", err)
	}
	for _, record := range linksRes.Records {
		structure.Links = append(structure.Links, recordToLink(record))
	}

	return structure, nil
}

// ListPersons returns every person recorded for a client, ordered by id.
func (r *Repository) ListPersons(ctx context.Context, clientID string) ([]domain.Person, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}

	res, err := r.client.ExecuteRead(ctx, listPersonsCypher, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}

	persons := make([]domain.Person, 0, len(res.Records))
	for _, record := range res.Records {
		persons = append(persons, domain.Person{
			ID:         toString(record["personId"]),
			ExternalID: toString(record["externalId"]),
			Name:       toString(record["name"]),
		})
	}
	return persons, nil
}

// ListNodes returns paginated nodes matching the provided filters.
func (r *Repository) ListNodes(ctx context.Context, opts ListNodesOptions) (NodeListResult, error) {
	if opts.ClientID == "" {
		return NodeListResult{}, errors.New("client id is required")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := map[string]any{
		"clientId":     opts.ClientID,
		"type":         strings.ToLower(strings.TrimSpace(opts.Type)),
		"jurisdiction": strings.TrimSpace(opts.Jurisdiction),
		"search":       strings.ToLower(strings.TrimSpace(opts.Search)),
		"skip":         offset,
		"limit":        limit,
	}

	query := fmt.Sprintf(listNodesCypherTemplate, nodeFilterClause, nodeOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return NodeListResult{}, fmt.Errorf("list nodes query: %w", err)
	}

	var nodes []domain.OwnershipNode
	for _, record := range res.Records {
		nodes = append(nodes, recordToNode(record))
	}

	countQuery := fmt.Sprintf(countNodesCypherTemplate, nodeFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return NodeListResult{}, fmt.Errorf("count nodes query: %w", err)
	}

	return NodeListResult{
		Items: nodes,
		Total: toInt64(countRes),
	}, nil
}

// SaveView persists a published client-safe view. Nodes, links, and mask
// rules are stored as a JSON payload; views are immutable once written.
func (r *Repository) SaveView(ctx context.Context, view domain.ClientSafeView) error {
	if view.ID == "" {
		return errors.New("view id is required")
	}

	payload, err := json.Marshal(viewPayload{
		ScopeNodeID: view.ScopeNodeID,
		Nodes:       view.Nodes,
		Links:       view.Links,
		MaskRules:   view.MaskRules,
	})
	if err != nil {
		return fmt.Errorf("serialize view %s: %w", view.ID, err)
	}

	params := map[string]any{
		"viewId":      view.ID,
		"clientId":    view.ClientID,
		"payload":     string(payload),
		"publishedAt": formatTime(view.PublishedAt),
		"publishedBy": view.PublishedBy,
	}
	if _, err := r.client.ExecuteWrite(ctx, saveViewCypher, params); err != nil {
		return fmt.Errorf("save view %s: %w", view.ID, err)
	}
	return nil
}

// ErrViewNotFound indicates a requested view id does not exist.
var ErrViewNotFound = errors.New("client-safe view not found")

// GetView loads a previously published client-safe view by id.
func (r *Repository) GetView(ctx context.Context, viewID string) (domain.ClientSafeView, error) {
	if viewID == "" {
		return domain.ClientSafeView{}, errors.New("view id is required")
	}

	res, err := r.client.ExecuteRead(ctx, getViewCypher, map[string]any{"viewId": viewID})
	if err != nil {
		return domain.ClientSafeView{}, fmt.Errorf("load view %s: %w", viewID, err)
	}
	if len(res.Records) == 0 {
		return domain.ClientSafeView{}, ErrViewNotFound
	}

	record := res.Records[0]
	view := domain.ClientSafeView{
		ID:          toString(record["viewId"]),
		ClientID:    toString(record["clientId"]),
		PublishedBy: toString(record["publishedBy"]),
	}
	if ts := toTimePtr(record["publishedAt"]); ts != nil {
		view.PublishedAt = *ts
	}

	var payload viewPayload
	if err := json.Unmarshal([]byte(toString(record["payload"])), &payload); err != nil {
		return domain.ClientSafeView{}, fmt.Errorf("decode view %s payload: %w", viewID, err)
	}
	view.ScopeNodeID = payload.ScopeNodeID
	view.Nodes = payload.Nodes
	view.Links = payload.Links
	view.MaskRules = payload.MaskRules

	return view, nil
}

// SaveUboRun persists the outcome of a UBO computation as a single run node.
func (r *Repository) SaveUboRun(ctx context.Context, runID, clientID string, records []domain.UboRecord) error {
	if runID == "" {
		return errors.New("run id is required")
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("serialize ubo run %s: %w", runID, err)
	}

	params := map[string]any{
		"runId":       runID,
		"clientId":    clientID,
		"payload":     string(payload),
		"recordCount": len(records),
		"computedAt":  formatTime(time.Now().UTC()),
	}
	if _, err := r.client.ExecuteWrite(ctx, saveUboRunCypher, params); err != nil {
		return fmt.Errorf("save ubo run %s: %w", runID, err)
	}
	return nil
}

// viewPayload is the JSON shape stored on a view node.
type viewPayload struct {
	ScopeNodeID string            `json:"scopeNodeId"`
	Nodes       []domain.ViewNode `json:"nodes"`
	Links       []domain.ViewLink `json:"links"`
	MaskRules   domain.MaskRules  `json:"maskRules"`
}

func nodeProperties(n domain.OwnershipNode) map[string]any {
	props := map[string]any{
		"name":         n.Name,
		"type":         string(n.Type),
		"jurisdiction": n.Jurisdiction,
		"status":       n.Status,
		"notes":        n.Notes,
		"updatedAt":    formatTime(n.UpdatedAt),
	}
	if !n.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(n.CreatedAt)
	}
	if n.Value != nil {
		props["value"] = *n.Value
	}
	if n.ExternalRef != nil {
		props["externalRefType"] = n.ExternalRef.Type
		props["externalRefId"] = n.ExternalRef.ID
	}
	return props
}

func linkProperties(l domain.OwnershipLink) map[string]any {
	props := map[string]any{
		"ownershipPct":  l.OwnershipPct,
		"sourceRef":     l.SourceRef,
		"effectiveFrom": formatTime(l.EffectiveFrom),
		"updatedAt":     formatTime(l.UpdatedAt),
	}
	if !l.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(l.CreatedAt)
	}
	if l.ProfitSharePct != nil {
		props["profitSharePct"] = *l.ProfitSharePct
	}
	if l.EffectiveTo != nil {
		props["effectiveTo"] = formatTime(*l.EffectiveTo)
	}
	return props
}

func recordToNode(record graph.Record) domain.OwnershipNode {
	node := domain.OwnershipNode{
		ID:           toString(record["nodeId"]),
		ClientID:     toString(record["clientId"]),
		Name:         toString(record["name"]),
		Type:         domain.NodeType(toString(record["type"])),
		Jurisdiction: toString(record["jurisdiction"]),
		Status:       toString(record["status"]),
		Notes:        toString(record["notes"]),
	}
	if refType := toString(record["externalRefType"]); refType != "" {
		node.ExternalRef = &domain.ExternalRef{
			Type: refType,
			ID:   toString(record["externalRefId"]),
		}
	}
	if v, ok := record["value"]; ok && v != nil {
		value := toFloat64(v)
		node.Value = &value
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		node.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		node.UpdatedAt = *updated
	}
	return node
}

func recordToLink(record graph.Record) domain.OwnershipLink {
	link := domain.OwnershipLink{
		ID:           toString(record["linkId"]),
		ClientID:     toString(record["clientId"]),
		FromNodeID:   toString(record["fromId"]),
		ToNodeID:     toString(record["toId"]),
		OwnershipPct: toFloat64(record["ownershipPct"]),
		SourceRef:    toString(record["sourceRef"]),
	}
	if v, ok := record["profitSharePct"]; ok && v != nil {
		pct := toFloat64(v)
		link.ProfitSharePct = &pct
	}
	if from := toTimePtr(record["effectiveFrom"]); from != nil {
		link.EffectiveFrom = *from
	}
	link.EffectiveTo = toTimePtr(record["effectiveTo"])
	if created := toTimePtr(record["createdAt"]); created != nil {
		link.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		link.UpdatedAt = *updated
	}
	return link
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}

func toInt64(res graph.Result) int64 {
	if len(res.Records) == 0 {
		return 0
	}
	switch v := res.Records[0]["total"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

const upsertNodeCypher = `
MERGE (n:OwnershipNode {nodeId: $nodeId})
SET n += $props
SET n.clientId = $clientId
RETURN n.nodeId AS nodeId
`

const upsertLinkCypher = `
MATCH (from:OwnershipNode {nodeId: $fromId})
MATCH (to:OwnershipNode {nodeId: $toId})
MERGE (from)-[o:OWNS {linkId: $linkId}]->(to)
SET o += $props
SET o.clientId = $clientId
RETURN o.linkId AS linkId
`

const deleteLinkCypher = `
MATCH (:OwnershipNode)-[o:OWNS {linkId: $linkId}]->(:OwnershipNode)
WHERE $clientId = "" OR o.clientId = $clientId
DELETE o
`

const upsertPersonCypher = `
MERGE (p:Person {personId: $personId})
SET p.clientId = $clientId,
    p.externalId = $externalId,
    p.name = $name
RETURN p.personId AS personId
`

const structureNodesCypher = `
MATCH (n:OwnershipNode {clientId: $clientId})
RETURN n.nodeId AS nodeId,
       n.clientId AS clientId,
       n.name AS name,
       n.type AS type,
       n.jurisdiction AS jurisdiction,
       n.externalRefType AS externalRefType,
       n.externalRefId AS externalRefId,
       n.status AS status,
       n.notes AS notes,
       n.value AS value,
       n.createdAt AS createdAt,
       n.updatedAt AS updatedAt
ORDER BY n.nodeId
`

const structureLinksCypher = `
MATCH (from:OwnershipNode)-[o:OWNS {clientId: $clientId}]->(to:OwnershipNode)
RETURN o.linkId AS linkId,
       o.clientId AS clientId,
       from.nodeId AS fromId,
       to.nodeId AS toId,
       o.ownershipPct AS ownershipPct,
       o.profitSharePct AS profitSharePct,
       o.effectiveFrom AS effectiveFrom,
       o.effectiveTo AS effectiveTo,
       o.sourceRef AS sourceRef,
       o.createdAt AS createdAt,
       o.updatedAt AS updatedAt
ORDER BY o.linkId
`

const listPersonsCypher = `
MATCH (p:Person {clientId: $clientId})
RETURN p.personId AS personId,
       p.externalId AS externalId,
       p.name AS name
ORDER BY p.personId
`

const listNodesCypherTemplate = `
MATCH (n:OwnershipNode {clientId: $clientId})
%s
RETURN n.nodeId AS nodeId,
       n.clientId AS clientId,
       n.name AS name,
       n.type AS type,
       n.jurisdiction AS jurisdiction,
       n.externalRefType AS externalRefType,
       n.externalRefId AS externalRefId,
       n.status AS status,
       n.notes AS notes,
       n.value AS value,
       n.createdAt AS createdAt,
       n.updatedAt AS updatedAt
ORDER BY %s
SKIP $skip LIMIT $limit
`

const countNodesCypherTemplate = `
MATCH (n:OwnershipNode {clientId: $clientId})
%s
RETURN count(n) AS total
`

const nodeFilterClause = `
WHERE ($type = "" OR n.type = $type)
  AND ($jurisdiction = "" OR n.jurisdiction = $jurisdiction)
  AND ($search = "" OR toLower(n.name) CONTAINS $search OR toLower(n.nodeId) CONTAINS $search)
`

const saveViewCypher = `
MERGE (v:ClientSafeView {viewId: $viewId})
SET v.clientId = $clientId,
    v.payload = $payload,
    v.publishedAt = $publishedAt,
    v.publishedBy = $publishedBy
RETURN v.viewId AS viewId
`

const getViewCypher = `
MATCH (v:ClientSafeView {viewId: $viewId})
RETURN v.viewId AS viewId,
       v.clientId AS clientId,
       v.payload AS payload,
       v.publishedAt AS publishedAt,
       v.publishedBy AS publishedBy
`

const saveUboRunCypher = `
MERGE (u:UboRun {runId: $runId})
SET u.clientId = $clientId,
    u.payload = $payload,
    u.recordCount = $recordCount,
    u.computedAt = $computedAt
RETURN u.runId AS runId
`

func nodeOrderClause(field, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "DESC") {
		dir = "DESC"
	}
	switch strings.ToLower(field) {
	case "name":
		return fmt.Sprintf("toLower(n.name) %s", dir)
	case "type":
		return fmt.Sprintf("n.type %s", dir)
	case "jurisdiction":
		return fmt.Sprintf("n.jurisdiction %s", dir)
	case "createdat":
		return fmt.Sprintf("datetime(n.createdAt) %s", dir)
	case "updatedat":
		return fmt.Sprintf("datetime(n.updatedAt) %s", dir)
	default:
		return fmt.Sprintf("n.nodeId %s", dir)
	}
}
