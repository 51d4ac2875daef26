package flowchart

// Three flowcharts in the AMA set are entered through an age/sex-conditional
// nested variant rather than directly. The set is closed; callers must
// redirect through NestedVariant before calling Load. This is configuration
// data shipped with the flowchart files, not navigation logic.
var nestedVariants = map[string]string{
	"Pelvic Pain In Women Flowchart":                    "Pelvic Pain In Women Nested Flowchart",
	"Confusion In Older People Flowchart":               "Confusion In Older People Nested Flowchart",
	"Lack Of Bladder Control In Older People Flowchart": "Lack Of Bladder Control In Older People Nested Flowchart",
}

// IsNested reports whether a flowchart name belongs to the special-case set.
func IsNested(name string) bool {
	_, ok := nestedVariants[name]
	return ok
}

// NestedVariant maps a special-case flowchart name to the nested variant that
// must actually be loaded. Names outside the set are returned unchanged.
func NestedVariant(name string) string {
	if v, ok := nestedVariants[name]; ok {
		return v
	}
	return name
}
