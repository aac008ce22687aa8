// Package all registers every built-in storage backend. Import it for side
// effects only:
//
//	import _ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/all"
//
// after which storage.New accepts "postgres", "sqlite" and "mssql".
package all

import (
	_ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/mssql"
	_ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/postgres"
	_ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/sqlite"
)
