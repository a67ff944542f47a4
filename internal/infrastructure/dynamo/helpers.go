package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is an update or condition expression with its placeholder maps.
type updateExpr struct {
	Expr      string
	Condition string
	Names     map[string]string
	Values    map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Fields are emitted in sorted order so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	parts, err := ue.bind("f", "v", updates)
	if err != nil {
		return updateExpr{}, err
	}
	ue.Expr = "SET " + strings.Join(parts, ", ")
	return ue, nil
}

// withEquals adds an ANDed equality condition for every field in conds.
func (ue updateExpr) withEquals(conds map[string]interface{}) (updateExpr, error) {
	parts, err := ue.bind("c", "c", conds)
	if err != nil {
		return updateExpr{}, err
	}
	ue.Condition = strings.Join(parts, " AND ")
	return ue, nil
}

func (ue updateExpr) bind(namePrefix, valuePrefix string, fields map[string]interface{}) ([]string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#%s%d", namePrefix, i)
		valueKey := fmt.Sprintf(":%s%d", valuePrefix, i)
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	return parts, nil
}
