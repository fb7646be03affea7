package core

// Children returns the direct child nodes of n in traversal order.
func Children(n Node) []Node {
	var out []Node
	add := func(ns ...Node) {
		for _, c := range ns {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	addExprs := func(es []Expr) {
		for _, e := range es {
			add(e)
		}
	}
	switch x := n.(type) {
	case *Literal:
		add(x.bind)
	case *UnaryOp:
		add(x.operand)
	case *BinaryOp:
		add(x.left, x.right)
	case *FunctionCall:
		addExprs(x.args)
	case *Label:
		add(x.elem)
	case *Case:
		if x.value != nil {
			add(x.value)
		}
		for _, w := range x.whens {
			add(w.Cond, w.Result)
		}
		if x.els != nil {
			add(x.els)
		}
	case *Cast:
		add(x.elem)
	case *Grouping:
		add(x.elem)
	case *ClauseList:
		addExprs(x.items)
	case *ScalarSubquery:
		add(x.sel)
	case *Alias:
		add(x.elem)
	case *Join:
		add(x.left, x.right, x.on)
	case *SelectStmt:
		addExprs(x.columns)
		for _, f := range x.froms {
			add(f)
		}
		if x.where != nil {
			add(x.where)
		}
		if x.having != nil {
			add(x.having)
		}
		addExprs(x.groupBy)
		addExprs(x.orderBy)
		if x.limit != nil {
			add(x.limit)
		}
	case *CompoundSelect:
		for _, s := range x.selects {
			add(s)
		}
		addExprs(x.orderBy)
		if x.limit != nil {
			add(x.limit)
		}
	case *Limit:
		if x.count != nil {
			add(x.count)
		}
		if x.offset != nil {
			add(x.offset)
		}
	case *InsertStmt:
		add(x.table)
		for _, row := range x.rows {
			addExprs(row)
		}
		if x.query != nil {
			add(x.query)
		}
		addExprs(x.returning)
	case *UpdateStmt:
		add(x.table)
		for _, sc := range x.sets {
			add(sc.value)
		}
		if x.where != nil {
			add(x.where)
		}
		addExprs(x.returning)
	case *DeleteStmt:
		add(x.table)
		if x.where != nil {
			add(x.where)
		}
		addExprs(x.returning)
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// exprFroms returns the FROM elements referenced by e, not looking inside
// nested statements.
func exprFroms(e Expr) []FromClause {
	if e == nil {
		return nil
	}
	var out []FromClause
	Walk(e, func(n Node) bool {
		switch x := n.(type) {
		case *Column:
			if x.table != nil {
				out = append(out, x.table)
			}
		case *Star:
			if x.table != nil {
				out = append(out, x.table)
			}
		case *ScalarSubquery:
			return false
		}
		return true
	})
	return out
}

// Tables returns every schema table referenced anywhere in n, in first-
// reference order.
func Tables(n Node) []*Table {
	var out []*Table
	seen := make(map[*Table]bool)
	Walk(n, func(n Node) bool {
		var t *Table
		switch x := n.(type) {
		case *Table:
			t = x
		case *Column:
			t = baseTable(x.table)
		}
		if t != nil && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
		return true
	})
	return out
}
