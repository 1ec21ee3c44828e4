package addressing

// ShelterLetters is the ordered letter alphabet for shelters within one
// structure run. I and O are excluded per addressing convention so letters
// cannot be mistaken for 1 or 0 on handwritten registers.
var ShelterLetters = []string{
	"A", "B", "C", "D", "E", "F", "G", "H",
	"J", "K", "L", "M", "N",
	"P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
}

// Capacity is the number of shelters one structure run can label.
const Capacity = 24
