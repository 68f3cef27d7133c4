// Package specconst lowers specialization constant accessors.
//
// Front ends emit calls to two accessor families, declared but never
// defined in the module:
//
//	_Z27__sycl_getSpecConstantValue...          scalar, name in argument 0
//	_Z36__sycl_getCompositeSpecConstantValue... composite, result stored
//	                                            through argument 0, name in 1
//
// The name argument points at a string literal, either directly or through a
// local slot written once right before it is read. Run replaces every such
// call. In ModeRuntime the value is rebuilt from __spirv_SpecConstant leaf
// calls (one numeric ID per scalar leaf) combined by
// __spirv_SpecConstantComposite calls, and the root call is annotated with
//
//	!SYCL_SPEC_CONST_SYM_ID !{!"<symbolic id>", i32 <id>, ...}
//
// In ModeDefault the call is replaced by the zero value of its type.
//
// Collect reads the annotations back from a lowered module and rebuilds the
// symbolic ID to numeric ID mapping, including byte offsets and sizes of the
// leaves of composite constants.
package specconst
