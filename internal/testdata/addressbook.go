/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: addressbook.go
Description: Shared test payloads. AddressBook is the serialized FileDescriptorProto of the
classic addressbook.proto tutorial as emitted by protoc.
*/

package testdata

// AddressBook is a FileDescriptorProto for package "tutorial" declaring Person
// (with nested PhoneNumber and PhoneType) and AddressBook.
var AddressBook = []byte("\n\x11\x61\x64\x64ressbook.proto\x12\x08tutorial\"\xda\x01\n\x06Person\x12\x0c\n\x04name\x18\x01 \x02(\t\x12\n\n\x02id\x18\x02 \x02(\x05\x12\r\n\x05\x65mail\x18\x03 \x01(\t\x12+\n\x05phone\x18\x04 \x03(\x0b\x32\x1c.tutorial.Person.PhoneNumber\x1aM\n\x0bPhoneNumber\x12\x0e\n\x06number\x18\x01 \x02(\t\x12.\n\x04type\x18\x02 \x01(\x0e\x32\x1a.tutorial.Person.PhoneType:\x04HOME\"+\n\tPhoneType\x12\n\n\x06MOBILE\x10\x00\x12\x08\n\x04HOME\x10\x01\x12\x08\n\x04WORK\x10\x02\"/\n\x0b\x41\x64\x64ressBook\x12 \n\x06person\x18\x01 \x03(\x0b\x32\x10.tutorial.Person")

// AddressBookSchema is the schema text recovered from AddressBook.
const AddressBookSchema = "package tutorial;\n" +
	"message Person {\n" +
	"\tenum PhoneType {\n" +
	"\t\tMOBILE = 0;\n" +
	"\t\tHOME = 1;\n" +
	"\t\tWORK = 2;\n" +
	"\t}\n" +
	"\tmessage PhoneNumber {\n" +
	"\t\trequired string number = 1;\n" +
	"\t\toptional .tutorial.Person.PhoneType type = 2 [default = HOME];\n" +
	"\t}\n" +
	"\trequired string name = 1;\n" +
	"\trequired int32 id = 2;\n" +
	"\toptional string email = 3;\n" +
	"\trepeated .tutorial.Person.PhoneNumber phone = 4;\n" +
	"}\n" +
	"message AddressBook {\n" +
	"\trepeated .tutorial.Person person = 1;\n" +
	"}\n"

// Filler returns n bytes that never start a valid field (0x47 carries wire type 7).
func Filler(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'G'
	}
	return b
}
