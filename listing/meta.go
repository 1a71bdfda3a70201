package listing

// PaginationMeta is the page object the backend reports with every list.
type PaginationMeta struct {
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
}

// metaFromRows describes an unpaginated response that carried rows rows.
func metaFromRows(rows int) PaginationMeta {
	meta := PaginationMeta{Size: rows, TotalElements: rows}
	if rows > 0 {
		meta.TotalPages = 1
	}
	return meta
}

type Page[T any] struct {
	Rows []T
	Meta PaginationMeta
}
