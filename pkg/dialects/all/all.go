// Package all registers every supported SQL dialect.
// Import it for its side effects:
//
//	import _ "github.com/leapstack-labs/leapdecide/pkg/dialects/all"
package all

import (
	// Register dialects.
	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/clickhouse"
	_ "github.com/leapstack-labs/leapdecide/pkg/dialects/postgres"
)
