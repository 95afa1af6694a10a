package store

// Table DDL. Identifiers come from the store (AUTOINCREMENT / IDENTITY) so
// they grow monotonically and are never reused after a delete.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS Manufacturer (
		ManID INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS NBDrugs (
		DrugID INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT NOT NULL,
		Price INTEGER,
		Purpose TEXT,
		ManID INTEGER REFERENCES Manufacturer (ManID)
	)`,
	`CREATE TABLE IF NOT EXISTS Disease (
		DiseaseID INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Generics (
		GenID INTEGER PRIMARY KEY AUTOINCREMENT,
		Name TEXT NOT NULL,
		Price INTEGER,
		Purpose TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS DrugAlt (
		DrugID INTEGER NOT NULL REFERENCES NBDrugs (DrugID),
		GenID INTEGER NOT NULL REFERENCES Generics (GenID),
		PRIMARY KEY (DrugID, GenID)
	)`,
	`CREATE TABLE IF NOT EXISTS Treatment (
		DiseaseID INTEGER NOT NULL REFERENCES Disease (DiseaseID),
		DrugID INTEGER NOT NULL REFERENCES NBDrugs (DrugID),
		GenID INTEGER NOT NULL REFERENCES Generics (GenID),
		PRIMARY KEY (DiseaseID, DrugID, GenID)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS Manufacturer (
		ManID BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS NBDrugs (
		DrugID BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		Name TEXT NOT NULL,
		Price BIGINT,
		Purpose TEXT,
		ManID BIGINT REFERENCES Manufacturer (ManID)
	)`,
	`CREATE TABLE IF NOT EXISTS Disease (
		DiseaseID BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		Name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS Generics (
		GenID BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		Name TEXT NOT NULL,
		Price BIGINT,
		Purpose TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS DrugAlt (
		DrugID BIGINT NOT NULL REFERENCES NBDrugs (DrugID),
		GenID BIGINT NOT NULL REFERENCES Generics (GenID),
		PRIMARY KEY (DrugID, GenID)
	)`,
	`CREATE TABLE IF NOT EXISTS Treatment (
		DiseaseID BIGINT NOT NULL REFERENCES Disease (DiseaseID),
		DrugID BIGINT NOT NULL REFERENCES NBDrugs (DrugID),
		GenID BIGINT NOT NULL REFERENCES Generics (GenID),
		PRIMARY KEY (DiseaseID, DrugID, GenID)
	)`,
}

// Indexes backing the prefix filters and the join keys of the searches
var commonIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_nbdrugs_name ON NBDrugs (Name)`,
	`CREATE INDEX IF NOT EXISTS idx_nbdrugs_manid ON NBDrugs (ManID)`,
	`CREATE INDEX IF NOT EXISTS idx_disease_name ON Disease (Name)`,
	`CREATE INDEX IF NOT EXISTS idx_treatment_drug ON Treatment (DrugID)`,
	`CREATE INDEX IF NOT EXISTS idx_drugalt_gen ON DrugAlt (GenID)`,
}

// identityColumns lists the tables whose identity sequence must follow
// explicitly inserted ids (Postgres only)
var identityColumns = [][2]string{
	{"Manufacturer", "ManID"},
	{"NBDrugs", "DrugID"},
	{"Disease", "DiseaseID"},
	{"Generics", "GenID"},
}

func (d Dialect) schema() []string {
	var stmts []string
	if d == Postgres {
		stmts = append(stmts, postgresSchema...)
	} else {
		stmts = append(stmts, sqliteSchema...)
	}
	return append(stmts, commonIndexes...)
}
