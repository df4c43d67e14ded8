/*
 * backend/resources/nodepools/nodepools.go
 *
 * Karpenter NodePools.
 * - Read from unstructured objects; no Karpenter module is imported.
 * - Gated on the nodepools.karpenter.sh CRD.
 */

package nodepools

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/luxury-yacht/dashboard/backend/resources/common"
	"github.com/luxury-yacht/dashboard/backend/resources/generic"
	restypes "github.com/luxury-yacht/dashboard/backend/resources/types"
)

var NodePoolGVR = schema.GroupVersionResource{Group: "karpenter.sh", Version: "v1", Resource: "nodepools"}

type Service struct {
	NodePools *generic.Service[restypes.NodePoolInfo, *restypes.NodePoolDetails]
}

func NewService(deps generic.Dependencies) *Service {
	return &Service{NodePools: generic.NewService(deps, NodePoolKind())}
}

func (s *Service) Accessors() []generic.Accessor {
	return []generic.Accessor{s.NodePools.Accessor()}
}

func NodePoolKind() generic.Kind[restypes.NodePoolInfo, *restypes.NodePoolDetails] {
	return generic.Kind[restypes.NodePoolInfo, *restypes.NodePoolDetails]{
		Name:      "NodePool",
		GVR:       NodePoolGVR,
		CRD:       "nodepools.karpenter.sh",
		Feature:   "Karpenter",
		Watchable: true,
		ListItem:  nodePoolRow,
		Detail:    nodePoolDetails,
	}
}

func nodePoolRow(u *unstructured.Unstructured) (restypes.NodePoolInfo, error) {
	weight, _, err := unstructured.NestedInt64(u.Object, "spec", "weight")
	if err != nil {
		return restypes.NodePoolInfo{}, fmt.Errorf("nodepool %s: %w", u.GetName(), err)
	}
	conditions, err := nodePoolConditions(u)
	if err != nil {
		return restypes.NodePoolInfo{}, fmt.Errorf("nodepool %s: %w", u.GetName(), err)
	}
	return restypes.NodePoolInfo{
		Kind:      "NodePool",
		Name:      u.GetName(),
		NodeClass: nodeClass(u),
		Nodes:     nodeCount(u),
		Weight:    weight,
		Ready:     readyStatus(conditions),
		Age:       common.FormatAge(u.GetCreationTimestamp().Time),
	}, nil
}

func nodePoolDetails(u *unstructured.Unstructured) (*restypes.NodePoolDetails, error) {
	row, err := nodePoolRow(u)
	if err != nil {
		return nil, err
	}
	details := &restypes.NodePoolDetails{
		NodePoolInfo: row,
		Labels:       u.GetLabels(),
		Annotations:  u.GetAnnotations(),
	}

	if details.Limits, err = quantities(u, "spec", "limits"); err != nil {
		return nil, fmt.Errorf("nodepool %s: %w", u.GetName(), err)
	}
	if details.Resources, err = quantities(u, "status", "resources"); err != nil {
		return nil, fmt.Errorf("nodepool %s: %w", u.GetName(), err)
	}
	if details.Conditions, err = nodePoolConditions(u); err != nil {
		return nil, fmt.Errorf("nodepool %s: %w", u.GetName(), err)
	}

	requirements, _, _ := unstructured.NestedSlice(u.Object, "spec", "template", "spec", "requirements")
	for _, raw := range requirements {
		req, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key, _, _ := unstructured.NestedString(req, "key")
		operator, _, _ := unstructured.NestedString(req, "operator")
		values, _, _ := unstructured.NestedStringSlice(req, "values")
		entry := fmt.Sprintf("%s %s", key, operator)
		if len(values) > 0 {
			entry += " " + strings.Join(values, ",")
		}
		details.Requirements = append(details.Requirements, entry)
	}

	taints, _, _ := unstructured.NestedSlice(u.Object, "spec", "template", "spec", "taints")
	for _, raw := range taints {
		taint, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		key, _, _ := unstructured.NestedString(taint, "key")
		value, _, _ := unstructured.NestedString(taint, "value")
		effect, _, _ := unstructured.NestedString(taint, "effect")
		entry := key
		if value != "" {
			entry += "=" + value
		}
		details.Taints = append(details.Taints, entry+":"+effect)
	}

	if disruption, found, _ := unstructured.NestedMap(u.Object, "spec", "disruption"); found {
		details.Disruption = make(map[string]string)
		for key, value := range disruption {
			if key == "budgets" {
				if budgets, ok := value.([]any); ok {
					details.Disruption[key] = fmt.Sprintf("%d budget(s)", len(budgets))
				}
				continue
			}
			details.Disruption[key] = fmt.Sprint(value)
		}
	}
	return details, nil
}

func nodeClass(u *unstructured.Unstructured) string {
	ref, found, _ := unstructured.NestedStringMap(u.Object, "spec", "template", "spec", "nodeClassRef")
	if !found || ref["name"] == "" {
		return "-"
	}
	if ref["kind"] == "" {
		return ref["name"]
	}
	return ref["kind"] + "/" + ref["name"]
}

// nodeCount prefers status.nodes and falls back to the "nodes" resource.
func nodeCount(u *unstructured.Unstructured) int64 {
	if nodes, found, err := unstructured.NestedInt64(u.Object, "status", "nodes"); found && err == nil {
		return nodes
	}
	raw, found, _ := unstructured.NestedString(u.Object, "status", "resources", "nodes")
	if !found {
		return 0
	}
	q, err := resource.ParseQuantity(raw)
	if err != nil {
		return 0
	}
	return q.Value()
}

// quantities renders a resource list, formatting cpu and memory for display.
func quantities(u *unstructured.Unstructured, fields ...string) (map[string]string, error) {
	raw, found, err := unstructured.NestedMap(u.Object, fields...)
	if err != nil || !found {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for name, value := range raw {
		q, err := resource.ParseQuantity(fmt.Sprint(value))
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", strings.Join(fields, "."), name, err)
		}
		switch name {
		case "cpu":
			out[name] = common.FormatCPU(&q)
		case "memory":
			out[name] = common.FormatMemory(&q)
		default:
			out[name] = q.String()
		}
	}
	return out, nil
}

func nodePoolConditions(u *unstructured.Unstructured) ([]restypes.Condition, error) {
	raw, _, err := unstructured.NestedSlice(u.Object, "status", "conditions")
	if err != nil {
		return nil, err
	}
	out := make([]restypes.Condition, 0, len(raw))
	for _, item := range raw {
		c, ok := item.(map[string]any)
		if !ok {
			continue
		}
		condition := restypes.Condition{}
		condition.Type, _, _ = unstructured.NestedString(c, "type")
		condition.Status, _, _ = unstructured.NestedString(c, "status")
		condition.Reason, _, _ = unstructured.NestedString(c, "reason")
		condition.Message, _, _ = unstructured.NestedString(c, "message")
		out = append(out, condition)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func readyStatus(conditions []restypes.Condition) string {
	for _, c := range conditions {
		if c.Type == "Ready" {
			return common.TitleCase(strings.ToLower(c.Status))
		}
	}
	return "Unknown"
}
