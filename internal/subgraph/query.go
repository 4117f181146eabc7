package subgraph

import (
	"fmt"
	"strings"
)

const pageSize = 1000

// fragment is one aliased sub-query, one per address of a shard.
type fragment struct {
	owner string
	keys  []string
}

// buildOwnershipQuery renders one aliased nfts() selection per fragment.
// where is a format with two %s verbs: the owner and the keys variable names.
func buildOwnershipQuery(name, where, selection string, fragments []fragment) (string, map[string]interface{}) {
	var decls, body strings.Builder
	vars := make(map[string]interface{}, len(fragments)*2)
	for i, f := range fragments {
		ownerVar := fmt.Sprintf("owner%d", i)
		keysVar := fmt.Sprintf("keys%d", i)
		if i > 0 {
			decls.WriteString(", ")
		}
		fmt.Fprintf(&decls, "$%s: String!, $%s: [String!]!", ownerVar, keysVar)
		fmt.Fprintf(&body, "  %s: nfts(first: %d, where: {%s}) { %s }\n",
			alias(i), pageSize, fmt.Sprintf(where, "$"+ownerVar, "$"+keysVar), selection)
		vars[ownerVar] = f.owner
		vars[keysVar] = f.keys
	}
	return fmt.Sprintf("query %s(%s) {\n%s}", name, decls.String(), body.String()), vars
}

func alias(i int) string {
	return fmt.Sprintf("f%d", i)
}
