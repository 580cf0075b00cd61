package model

// TaxTable identifies one of the tax lookup tables.
type TaxTable string

const (
	// TaxTableNCM maps a SKU to its NCM (Mercosur nomenclature) code.
	TaxTableNCM TaxTable = "ncm"
	// TaxTableIPI maps an NCM code to its IPI rate in percent.
	TaxTableIPI TaxTable = "ipi"
)

// IsValid reports whether t names a known table.
func (t TaxTable) IsValid() bool {
	return t == TaxTableNCM || t == TaxTableIPI
}
