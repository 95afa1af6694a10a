package store

import "fmt"

// Search page sizes. All searches use keyset pagination on the drug id:
// the caller passes the largest id of the previous page as id_from.
const (
	PageSize        = 8
	CompactPageSize = 6
)

// queries holds the SQL text of every statement, rendered once for the
// store's dialect
type queries struct {
	drugSearch       string
	diseaseSearch    string
	multiDisease     string
	drugDescription  string
	listManufacturer string
	listDisease      string
	listDrug         string
	listGeneric      string

	insertManufacturer string
	insertDrug         string
	insertGeneric      string
	insertDisease      string
	linkDrugAlt        string
	insertTreatment    string
	renameManufacturer string

	deleteDrugTreatments string
	deleteDrugAlts       string
	deleteDrug           string

	count string

	integrityDrugsWithoutTreatment    string
	integrityDrugsWithoutManufacturer string
	integrityGenericsWithoutDrug      string
	integrityUnlinkedTreatments       string
	integrityUnlinkedSample           string
}

// Drug search joins the whole graph and groups per drug, generic and
// manufacturer. Columns that are not part of the grouping key go through
// MIN() so every dialect returns the same deterministic value.
const drugSearchSQL = `
SELECT
	nbd.Name,
	nbd.DrugID,
	MIN(g.GenID),
	%s,
	MIN(g.Price),
	nbd.Price,
	g.Name
FROM Manufacturer AS m
JOIN NBDrugs AS nbd ON m.ManID = nbd.ManID
JOIN Treatment AS t ON t.DrugID = nbd.DrugID
JOIN DrugAlt AS da ON da.DrugID = t.DrugID
JOIN Generics AS g ON da.GenID = g.GenID
JOIN Disease AS d ON d.DiseaseID = t.DiseaseID
WHERE substr(nbd.Name, 1, ?) = ? AND nbd.DrugID > ?
GROUP BY nbd.DrugID, nbd.Name, nbd.Price, g.Name, m.Name
ORDER BY nbd.DrugID ASC, g.Name ASC
LIMIT ?`

const diseaseSearchSQL = `
SELECT DISTINCT
	g.Name,
	d.DiseaseID,
	g.Price,
	nbd.Price,
	nbd.DrugID,
	d.Name,
	nbd.Name
FROM Manufacturer AS m
JOIN NBDrugs AS nbd ON m.ManID = nbd.ManID
JOIN Treatment AS t ON t.DrugID = nbd.DrugID
JOIN DrugAlt AS da ON da.DrugID = t.DrugID
JOIN Generics AS g ON da.GenID = g.GenID
JOIN Disease AS d ON d.DiseaseID = t.DiseaseID
WHERE substr(d.Name, 1, ?) = ? AND nbd.DrugID > ?
ORDER BY nbd.DrugID ASC, d.DiseaseID ASC, g.Name ASC
LIMIT ?`

const multiDiseaseSQL = `
SELECT
	nbd.Name,
	nbd.DrugID,
	COUNT(DISTINCT d.DiseaseID) AS disease_count,
	%s,
	MIN(m.Name),
	nbd.Price
FROM NBDrugs AS nbd
JOIN Treatment AS t ON t.DrugID = nbd.DrugID
JOIN Disease AS d ON d.DiseaseID = t.DiseaseID
JOIN Manufacturer AS m ON m.ManID = nbd.ManID
WHERE nbd.DrugID > ?
GROUP BY nbd.DrugID, nbd.Name, nbd.Price
HAVING COUNT(DISTINCT d.DiseaseID) >= ?
ORDER BY disease_count DESC, nbd.DrugID ASC
LIMIT ?`

func newQueries(d Dialect) queries {
	q := queries{
		drugSearch:       fmt.Sprintf(drugSearchSQL, d.groupConcat("d.Name")),
		diseaseSearch:    diseaseSearchSQL,
		multiDisease:     fmt.Sprintf(multiDiseaseSQL, d.groupConcat("d.Name")),
		drugDescription:  `SELECT Purpose FROM NBDrugs WHERE Name = ? ORDER BY DrugID`,
		listManufacturer: `SELECT ManID, Name FROM Manufacturer ORDER BY ManID`,
		listDisease:      `SELECT DiseaseID, Name FROM Disease ORDER BY DiseaseID`,
		listDrug:         `SELECT DrugID, Name FROM NBDrugs ORDER BY DrugID`,
		listGeneric:      `SELECT GenID, Name FROM Generics ORDER BY GenID`,

		insertManufacturer: `INSERT INTO Manufacturer (Name) VALUES (?) RETURNING ManID`,
		insertDrug:         `INSERT INTO NBDrugs (Name, Price, Purpose, ManID) VALUES (?, ?, ?, ?) RETURNING DrugID`,
		insertGeneric:      `INSERT INTO Generics (Name, Price, Purpose) VALUES (?, ?, ?) RETURNING GenID`,
		insertDisease:      `INSERT INTO Disease (Name) VALUES (?) RETURNING DiseaseID`,
		linkDrugAlt:        `INSERT INTO DrugAlt (DrugID, GenID) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		insertTreatment:    `INSERT INTO Treatment (DiseaseID, DrugID, GenID) VALUES (?, ?, ?)`,
		renameManufacturer: `UPDATE Manufacturer SET Name = ? WHERE ManID = ?`,

		deleteDrugTreatments: `DELETE FROM Treatment WHERE DrugID = ?`,
		deleteDrugAlts:       `DELETE FROM DrugAlt WHERE DrugID = ?`,
		deleteDrug:           `DELETE FROM NBDrugs WHERE DrugID = ?`,

		count: `SELECT
			(SELECT COUNT(*) FROM Manufacturer),
			(SELECT COUNT(*) FROM NBDrugs),
			(SELECT COUNT(*) FROM Generics),
			(SELECT COUNT(*) FROM Disease),
			(SELECT COUNT(*) FROM DrugAlt),
			(SELECT COUNT(*) FROM Treatment)`,

		integrityDrugsWithoutTreatment: `SELECT COUNT(*) FROM NBDrugs AS nbd
			WHERE NOT EXISTS (SELECT 1 FROM Treatment AS t WHERE t.DrugID = nbd.DrugID)`,
		integrityDrugsWithoutManufacturer: `SELECT COUNT(*) FROM NBDrugs WHERE ManID IS NULL`,
		integrityGenericsWithoutDrug: `SELECT COUNT(*) FROM Generics AS g
			WHERE NOT EXISTS (SELECT 1 FROM DrugAlt AS da WHERE da.GenID = g.GenID)`,
		integrityUnlinkedTreatments: `SELECT COUNT(*) FROM Treatment AS t
			WHERE NOT EXISTS (SELECT 1 FROM DrugAlt AS da WHERE da.DrugID = t.DrugID AND da.GenID = t.GenID)`,
		integrityUnlinkedSample: `SELECT t.DiseaseID, t.DrugID, t.GenID FROM Treatment AS t
			WHERE NOT EXISTS (SELECT 1 FROM DrugAlt AS da WHERE da.DrugID = t.DrugID AND da.GenID = t.GenID)
			ORDER BY t.DrugID, t.DiseaseID, t.GenID
			LIMIT ?`,
	}

	for _, p := range []*string{
		&q.drugSearch, &q.diseaseSearch, &q.multiDisease, &q.drugDescription,
		&q.insertManufacturer, &q.insertDrug, &q.insertGeneric, &q.insertDisease,
		&q.linkDrugAlt, &q.insertTreatment, &q.renameManufacturer,
		&q.deleteDrugTreatments, &q.deleteDrugAlts, &q.deleteDrug,
		&q.integrityUnlinkedSample,
	} {
		*p = d.rebind(*p)
	}
	return q
}
