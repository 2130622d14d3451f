package mutation

// Compress collapses runs of records that only the last one matters for:
//   - consecutive attr on the same (target, name): keep last, OldValue from first
//   - consecutive text on the same target: keep last, OldValue from first
//   - insert, remove, attr_del and doc_reset are structurally significant
//     and never compressed
func Compress(records []Record) []Record {
	if len(records) <= 1 {
		return records
	}

	result := make([]Record, 0, len(records))

	for i := 0; i < len(records); i++ {
		rec := records[i]

		switch rec.Op {
		case OpAttr:
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Op == OpAttr &&
				records[j].Target == rec.Target &&
				records[j].Name == rec.Name {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1

		case OpText:
			firstOld := rec.OldValue
			j := i + 1
			for j < len(records) &&
				records[j].Op == OpText &&
				records[j].Target == rec.Target {
				rec = records[j]
				j++
			}
			rec.OldValue = firstOld
			result = append(result, rec)
			i = j - 1

		default:
			result = append(result, rec)
		}
	}

	return result
}
