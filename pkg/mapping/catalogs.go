package mapping

import "sort"

const (
	CatalogSimple  = "simple"
	CatalogBiodata = "biodata"
)

// SimpleCatalog covers the short member sheet keyed by email.
var SimpleCatalog = MustCatalog(CatalogSimple, "email",
	TargetField{Key: "email", Label: "Email", Required: true, Kind: KindEmail,
		Pattern: Patterns(`e-?mail`, `surel`)},
	TargetField{Key: "full_name", Label: "Full Name",
		Pattern: Patterns(`^(full ?)?name$`, `^nama( lengkap)?$`)},
	TargetField{Key: "phone", Label: "Phone Number",
		Pattern: Patterns(`phone`, `telepon`, `^telp`, `^hp$`, `^no\.? ?hp`, `whatsapp`, `^wa$`)},
	TargetField{Key: "department", Label: "Department/Group",
		Pattern: Patterns(`depart`, `^group$`, `^grup$`, `divisi`, `bagian`)},
	TargetField{Key: "position", Label: "Position",
		Pattern: Patterns(`position`, `jabatan`)},
	TargetField{Key: "role", Label: "Role",
		Pattern: Patterns(`^role$`, `^peran$`)},
	TargetField{Key: "status", Label: "Status", Kind: KindStatus,
		Pattern: Patterns(`^status$`, `^aktif$`, `^active$`)},
)

// BiodataCatalog covers the full biodata sheet keyed by NIK.
var BiodataCatalog = MustCatalog(CatalogBiodata, "nik",
	TargetField{Key: "nik", Label: "NIK", Required: true, Kind: KindIdentity,
		Pattern: Patterns(`^nik$`, `^nipd$`)},
	TargetField{Key: "nama", Label: "Nama", Required: true,
		Pattern: Patterns(`^nama( lengkap)?$`, `^(full )?name$`)},
	TargetField{Key: "nisn", Label: "NISN", Kind: KindIdentity,
		Pattern: Patterns(`^nisn$`)},
	TargetField{Key: "jenis_kelamin", Label: "Jenis Kelamin", Kind: KindGender,
		Pattern: Patterns(`^jk$`, `^l/p$`, `gender`, `jenis kelamin`, `^sex$`)},
	TargetField{Key: "tempat_lahir", Label: "Tempat Lahir",
		Pattern: Patterns(`tempat lahir`, `kota lahir`, `^birth ?place$`)},
	TargetField{Key: "tanggal_lahir", Label: "Tanggal Lahir", Kind: KindDate,
		Pattern: Patterns(`tanggal lahir`, `tgl\.? lahir`, `^birth ?date$`, `date of birth`)},
	TargetField{Key: "agama", Label: "Agama",
		Pattern: Patterns(`^agama$`, `religion`)},
	TargetField{Key: "jalan", Label: "Jalan",
		Pattern: Patterns(`^jalan$`, `^alamat`, `address`)},
	TargetField{Key: "rt", Label: "RT", Pattern: Patterns(`^rt$`)},
	TargetField{Key: "rw", Label: "RW", Pattern: Patterns(`^rw$`)},
	TargetField{Key: "dusun", Label: "Dusun", Pattern: Patterns(`^dusun$`)},
	TargetField{Key: "kelurahan", Label: "Kelurahan",
		Pattern: Patterns(`kelurahan`, `^desa`, `^kel\.?$`)},
	TargetField{Key: "kecamatan", Label: "Kecamatan",
		Pattern: Patterns(`kecamatan`, `^kec\.?$`)},
	TargetField{Key: "no_telepon", Label: "No Telepon",
		Pattern: Patterns(`telepon`, `^telp`, `^hp$`, `^no\.? ?hp`, `phone`, `whatsapp`, `^wa$`)},
	TargetField{Key: "email", Label: "Email", Kind: KindEmail,
		Pattern: Patterns(`e-?mail`, `surel`)},
	TargetField{Key: "department_id", Label: "Department/Group",
		Pattern: Patterns(`^jurusan$`, `^kelas$`, `^rombel`, `depart`, `divisi`, `^group$`, `^grup$`, `bagian`)},
)

var catalogs = map[string]*Catalog{
	CatalogSimple:  SimpleCatalog,
	CatalogBiodata: BiodataCatalog,
}

// LookupCatalog returns a registered catalog by name.
func LookupCatalog(name string) (*Catalog, bool) {
	c, ok := catalogs[name]
	return c, ok
}

// CatalogNames lists registered catalogs in sorted order.
func CatalogNames() []string {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
