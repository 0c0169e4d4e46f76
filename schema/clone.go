package schema

// deepCopyMap copies nested maps and slices so attribute definitions never
// share storage between catalogs and drafts
func deepCopyMap(original map[string]interface{}) map[string]interface{} {
	if original == nil {
		return nil
	}

	copied := make(map[string]interface{}, len(original))
	for key, value := range original {
		copied[key] = deepCopyValue(value)
	}

	return copied
}

func deepCopyValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return deepCopyMap(v)
	case Attribute:
		return Attribute(deepCopyMap(v))
	case []interface{}:
		copiedSlice := make([]interface{}, len(v))
		for i, item := range v {
			copiedSlice[i] = deepCopyValue(item)
		}
		return copiedSlice
	case []string:
		return append([]string(nil), v...)
	default:
		// scalars are copied by value
		return v
	}
}
