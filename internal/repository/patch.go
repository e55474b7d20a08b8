package repository

import "strings"

// setClause accumulates "col = ?" pairs for partial updates. Only non-nil
// patch fields are added, so an empty clause means there is nothing to write.
type setClause struct {
	cols []string
	args []interface{}
}

func (s *setClause) add(col string, val interface{}) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, val)
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

// build returns "UPDATE table SET ... WHERE key = ?" and its arguments.
func (s *setClause) build(table, key string, id interface{}) (string, []interface{}) {
	q := "UPDATE " + table + " SET " + strings.Join(s.cols, ", ") + " WHERE " + key + " = ?"
	return q, append(s.args, id)
}
