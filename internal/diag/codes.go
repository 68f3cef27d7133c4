package diag

import (
	"fmt"
)

type Code uint16

const (
	// Unknown diagnostic
	UnknownCode Code = 0

	// Lowering pass
	SpcInfo               Code = 1000
	SpcUnusedAccessor     Code = 1001
	SpcLowered            Code = 1002
	SpcMalformedPattern   Code = 1010
	SpcLeafCountMismatch  Code = 1011
	SpcIntrinsicSignature Code = 1012
	SpcLiveInstruction    Code = 1013
	SpcUnsupportedType    Code = 1014

	// Annotation collection
	ColInfo                Code = 2000
	ColMalformedAnnotation Code = 2001
	ColNotNormalized       Code = 2002
	ColDuplicateSymbol     Code = 2003

	// IR structure
	IRInfo    Code = 3000
	IRInvalid Code = 3001

	// I/O
	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002

	// Configuration
	CfgInfo    Code = 5000
	CfgInvalid Code = 5001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:            "Unknown error",
		SpcInfo:                "Lowering information",
		SpcUnusedAccessor:      "Accessor declared without call sites",
		SpcLowered:             "Accessor call sites lowered",
		SpcMalformedPattern:    "Symbolic ID is not a string literal in the expected form",
		SpcLeafCountMismatch:   "Symbolic ID reused with a different type",
		SpcIntrinsicSignature:  "Intrinsic declared with a conflicting signature",
		SpcLiveInstruction:     "Instruction still has uses after lowering",
		SpcUnsupportedType:     "Constant type is not supported",
		ColInfo:                "Collection information",
		ColMalformedAnnotation: "Malformed symbolic ID annotation",
		ColNotNormalized:       "Symbolic ID is not NFC-normalized",
		ColDuplicateSymbol:     "Symbolic ID annotated with different IDs",
		IRInfo:                 "IR information",
		IRInvalid:              "Module failed validation",
		IOLoadFileError:        "I/O load file error",
		IOWriteFileError:       "I/O write file error",
		CfgInfo:                "Configuration information",
		CfgInvalid:             "Invalid configuration",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SPC%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("COL%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
