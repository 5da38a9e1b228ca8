package upstream

import (
	"context"
	"net/http"
)

// PropertyDescriptor describes one property of a discovered schema.
type PropertyDescriptor struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	SelectOptions  []string `json:"selectOptions,omitempty"`
	RelationTarget string   `json:"relationTarget,omitempty"`
}

// SchemaReport is the discovery sub-service's output for one entity kind.
type SchemaReport struct {
	Kind        string               `json:"kind"`
	Properties  []PropertyDescriptor `json:"properties"`
	OrphanCount map[string]int       `json:"orphanCountByRelation"`
}

type wireSchema struct {
	Properties []PropertyDescriptor `json:"properties"`
}

// Discover retrieves kind's property schema and, for every declared
// relation, validates that the targets still exist in the related
// database, reporting an orphan count per relation (SPEC_FULL.md §4.3).
func (c *Client) Discover(ctx context.Context, priority int, kind string) (SchemaReport, error) {
	schema, err := call(ctx, c, priority, func(ctx context.Context) (wireSchema, error) {
		resp, err := c.do(ctx, http.MethodGet, "/"+kind+"s/schema", nil)
		if err != nil {
			return wireSchema{}, err
		}
		return decodeJSON[wireSchema](resp)
	})
	if err != nil {
		return SchemaReport{}, err
	}

	report := SchemaReport{Kind: kind, Properties: schema.Properties, OrphanCount: map[string]int{}}
	for _, p := range schema.Properties {
		if p.RelationTarget == "" {
			continue
		}
		count, err := c.countOrphans(ctx, priority, p.RelationTarget)
		if err != nil {
			// Discovery is diagnostic, not load-bearing: a failed orphan
			// check for one relation should not fail the whole report.
			continue
		}
		report.OrphanCount[p.Name] = count
	}
	return report, nil
}

type wireOrphanCheck struct {
	OrphanCount int `json:"orphan_count"`
}

func (c *Client) countOrphans(ctx context.Context, priority int, relationTarget string) (int, error) {
	result, err := call(ctx, c, priority, func(ctx context.Context) (wireOrphanCheck, error) {
		resp, err := c.do(ctx, http.MethodGet, "/"+relationTarget+"/orphans", nil)
		if err != nil {
			return wireOrphanCheck{}, err
		}
		return decodeJSON[wireOrphanCheck](resp)
	})
	return result.OrphanCount, err
}
