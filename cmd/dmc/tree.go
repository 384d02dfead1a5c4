package main

import (
	"fmt"

	"dmc/objtree"
	"dmc/path"
)

// qualifiedName renders a proc's owner path plus its name, the same
// "/type/path/procname" shape the -proc flags on disasm/inspect accept.
func qualifiedName(tree *objtree.Tree, proc *objtree.Proc) string {
	owner := tree.Objects[proc.OwningTypeID]
	return fmt.Sprintf("%s/%s", path.String(owner.Path), proc.Name)
}
