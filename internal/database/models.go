package database

// StoredRecord is a record row together with its storage metadata.
type StoredRecord struct {
	ID         int64
	Start      int
	Result     int
	RecordedAt string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalRecords int
	ByStart      map[int]int
	LastRecorded *string
}
